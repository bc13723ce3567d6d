// Package services provides the core business logic: session management,
// ownership verification, media retrieval and request admission.
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mxteam/mediabot/internal/domain"
	"github.com/mxteam/mediabot/internal/platform"
)

// SessionManager owns login, challenge handling and health checks for the
// bot's managed platform accounts. The serialized session blob never leaves
// this component: callers only receive a ready-to-use platform.Client.
type SessionManager struct {
	store    domain.SessionStore
	records  domain.SessionRecordRepository
	factory  platform.ClientFactory
	logger   *slog.Logger
	timeout  time.Duration
	mu       sync.Mutex
	sessions map[string]*managedSession
	locks    map[string]*sync.Mutex
}

// managedSession is the in-process state for one account. Mutated only while
// the account's serialization lock is held.
type managedSession struct {
	client        platform.Client
	lastValidated time.Time
	resumeToken   string
	status        domain.SessionStatus
}

// SessionManagerConfig configures a SessionManager.
type SessionManagerConfig struct {
	Store   domain.SessionStore
	Records domain.SessionRecordRepository
	Factory platform.ClientFactory
	Logger  *slog.Logger
	// CallTimeout bounds every platform network call.
	CallTimeout time.Duration
}

// NewSessionManager creates a session manager.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &SessionManager{
		store:    cfg.Store,
		records:  cfg.Records,
		factory:  cfg.Factory,
		logger:   cfg.Logger,
		timeout:  cfg.CallTimeout,
		sessions: make(map[string]*managedSession),
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockFor returns the serialization lock for one account. Concurrent logins
// or validations for the same account queue behind it; distinct accounts
// proceed fully concurrently.
func (m *SessionManager) lockFor(accountID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[accountID] = lock
	}
	return lock
}

func (m *SessionManager) getSession(accountID string) *managedSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[accountID]
}

func (m *SessionManager) setSession(accountID string, s *managedSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		delete(m.sessions, accountID)
		return
	}
	m.sessions[accountID] = s
}

func (m *SessionManager) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}

// persistRecord writes the session status row. Status rows are advisory; a
// write failure is logged, not raised, so it cannot wedge a login.
func (m *SessionManager) persistRecord(ctx context.Context, accountID string, status domain.SessionStatus, at time.Time) {
	if m.records == nil {
		return
	}
	err := m.records.Upsert(ctx, &domain.SessionRecord{
		AccountID:     accountID,
		Status:        status,
		LastValidated: at,
	})
	if err != nil {
		m.logger.Warn("failed to persist session record", "account_id", accountID, "error", err)
	}
}

// Login authenticates the account. A stored session is tried before a fresh
// credential login. A two-factor or checkpoint interruption is returned as an
// AUTH_CHALLENGE domain error carrying the challenge kind and resume token;
// it is a first-class outcome, not a fatal failure.
func (m *SessionManager) Login(ctx context.Context, accountID string, creds platform.Credentials) (*domain.SessionRef, error) {
	lock := m.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	// Reuse a persisted session when it still validates.
	if blob, err := m.store.Load(ctx, accountID); err == nil {
		client := m.factory()
		if err := client.ImportSession(blob); err == nil {
			cctx, cancel := m.callCtx(ctx)
			err = client.Validate(cctx)
			cancel()
			if err == nil {
				m.logger.Info("logged in from saved session", "account_id", accountID)
				return m.adopt(ctx, accountID, client)
			}
		}
		m.logger.Warn("saved session rejected, attempting fresh login", "account_id", accountID)
	}

	client := m.factory()
	cctx, cancel := m.callCtx(ctx)
	err := client.Login(cctx, creds)
	cancel()
	if err != nil {
		return nil, m.loginFailure(ctx, accountID, client, err)
	}
	m.logger.Info("fresh login succeeded", "account_id", accountID)
	return m.adopt(ctx, accountID, client)
}

// ResumeChallenge completes a login previously interrupted by a platform
// challenge. On success it behaves like Login.
func (m *SessionManager) ResumeChallenge(ctx context.Context, accountID, proof string) (*domain.SessionRef, error) {
	lock := m.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	sess := m.getSession(accountID)
	if sess == nil || sess.status != domain.SessionChallengeRequired {
		return nil, domain.NewNotFoundError("NO_PENDING_CHALLENGE", "no login challenge pending for this account")
	}

	cctx, cancel := m.callCtx(ctx)
	err := sess.client.ResumeChallenge(cctx, sess.resumeToken, proof)
	cancel()
	if err != nil {
		return nil, m.loginFailure(ctx, accountID, sess.client, err)
	}
	m.logger.Info("login challenge completed", "account_id", accountID)
	return m.adopt(ctx, accountID, sess.client)
}

// loginFailure translates a platform login error into the domain taxonomy,
// recording challenge state so it can be resumed out of band.
func (m *SessionManager) loginFailure(ctx context.Context, accountID string, client platform.Client, err error) error {
	now := time.Now()
	if pe, ok := platform.AsError(err); ok {
		switch pe.Kind {
		case platform.KindAuthChallenge:
			m.setSession(accountID, &managedSession{
				client:      client,
				status:      domain.SessionChallengeRequired,
				resumeToken: pe.ResumeToken,
			})
			m.persistRecord(ctx, accountID, domain.SessionChallengeRequired, now)
			return domain.NewAuthChallengeError(pe.ChallengeKind, pe.ResumeToken)
		case platform.KindAuthInvalid:
			m.persistRecord(ctx, accountID, domain.SessionExpired, now)
			return domain.NewAuthenticationError(domain.CodeAuthInvalid, "platform rejected the credentials")
		case platform.KindRateLimited:
			return domain.NewRateLimitedError("platform asked to wait before another login attempt")
		}
	}
	return domain.NewTransientError("login attempt failed", err)
}

// adopt persists the authenticated client's session and registers it as the
// account's single valid session. The blob write is atomic: on failure the
// previously stored blob stays intact and the login is reported as failed.
func (m *SessionManager) adopt(ctx context.Context, accountID string, client platform.Client) (*domain.SessionRef, error) {
	blob, err := client.ExportSession()
	if err != nil {
		return nil, domain.NewInternalError("SESSION_EXPORT_FAILED", "failed to serialize session", err)
	}
	if err := m.store.Save(ctx, accountID, blob); err != nil {
		return nil, err
	}

	now := time.Now()
	m.setSession(accountID, &managedSession{
		client:        client,
		status:        domain.SessionValid,
		lastValidated: now,
	})
	m.persistRecord(ctx, accountID, domain.SessionValid, now)
	return &domain.SessionRef{AccountID: accountID, Status: domain.SessionValid, LastValidated: now}, nil
}

// ImportSession accepts an operator-supplied serialized session blob. The
// blob is probed before acceptance; an invalid blob is rejected without
// touching the stored one.
func (m *SessionManager) ImportSession(ctx context.Context, accountID string, blob []byte) (*domain.SessionRef, error) {
	lock := m.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	client := m.factory()
	if err := client.ImportSession(blob); err != nil {
		return nil, domain.NewValidationError("INVALID_SESSION_BLOB", "session blob could not be parsed", nil)
	}
	cctx, cancel := m.callCtx(ctx)
	err := client.Validate(cctx)
	cancel()
	if err != nil {
		return nil, domain.NewAuthenticationError(domain.CodeAuthInvalid, "uploaded session did not validate")
	}
	return m.adopt(ctx, accountID, client)
}

// Validate performs a cheap authenticated probe. Any failure, including
// transport errors, marks the session expired and returns false: unknown is
// treated as invalid, and re-authentication is the caller's move. Retry
// policy deliberately lives with the caller, not here.
func (m *SessionManager) Validate(ctx context.Context, accountID string) bool {
	lock := m.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	sess := m.getSession(accountID)
	if sess == nil || sess.status != domain.SessionValid {
		if revived := m.reviveFromStore(ctx, accountID); revived != nil {
			sess = revived
		} else {
			return false
		}
	}

	cctx, cancel := m.callCtx(ctx)
	err := sess.client.Validate(cctx)
	cancel()
	now := time.Now()
	if err != nil {
		m.logger.Warn("session validation failed", "account_id", accountID, "error", err)
		sess.status = domain.SessionExpired
		m.persistRecord(ctx, accountID, domain.SessionExpired, now)
		return false
	}
	sess.lastValidated = now
	m.persistRecord(ctx, accountID, domain.SessionValid, now)
	return true
}

// reviveFromStore rebuilds an in-process session from the persisted blob
// after a restart. Called with the account lock held.
func (m *SessionManager) reviveFromStore(ctx context.Context, accountID string) *managedSession {
	blob, err := m.store.Load(ctx, accountID)
	if err != nil {
		return nil
	}
	client := m.factory()
	if err := client.ImportSession(blob); err != nil {
		m.logger.Warn("stored session blob unusable", "account_id", accountID, "error", err)
		return nil
	}
	sess := &managedSession{client: client, status: domain.SessionValid}
	m.setSession(accountID, sess)
	return sess
}

// GetAuthenticatedClient returns the ready-to-use capability object for a
// valid session. SESSION_UNAVAILABLE signals the caller to trigger
// re-authentication out of band.
func (m *SessionManager) GetAuthenticatedClient(accountID string) (platform.Client, error) {
	m.mu.Lock()
	sess := m.sessions[accountID]
	m.mu.Unlock()

	if sess == nil || sess.status != domain.SessionValid {
		return nil, domain.NewSessionUnavailableError(accountID)
	}
	return sess.client, nil
}

// Logout drops the in-process session and deletes the persisted blob.
func (m *SessionManager) Logout(ctx context.Context, accountID string) error {
	lock := m.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	m.setSession(accountID, nil)
	m.persistRecord(ctx, accountID, domain.SessionExpired, time.Now())
	return m.store.Delete(ctx, accountID)
}

// Status reports the caller-visible session state for the admin surface.
func (m *SessionManager) Status(accountID string) domain.SessionRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sessions[accountID]
	if sess == nil {
		return domain.SessionRef{AccountID: accountID, Status: domain.SessionUnknown}
	}
	return domain.SessionRef{
		AccountID:     accountID,
		Status:        sess.status,
		LastValidated: sess.lastValidated,
	}
}
