// Package platform defines the capability contracts toward the social
// platform, the fallback retrieval engine, and the audio transcoder, plus the
// error surface those collaborators report through.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/mxteam/mediabot/internal/domain"
)

// ErrorKind classifies a platform client failure.
type ErrorKind string

const (
	// KindAuthChallenge means login was interrupted by a two-factor or checkpoint challenge.
	KindAuthChallenge ErrorKind = "auth_challenge"
	// KindAuthInvalid means stored or supplied credentials were rejected.
	KindAuthInvalid ErrorKind = "auth_invalid"
	// KindNotFound means the referenced content does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindPrivate means the referenced content belongs to a private account.
	KindPrivate ErrorKind = "private"
	// KindRateLimited means the platform asked to slow down.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransient covers network and other retry-eligible failures.
	KindTransient ErrorKind = "transient"
)

// Error is a classified failure reported by a platform client.
type Error struct {
	Cause         error
	Kind          ErrorKind
	Message       string
	ChallengeKind string
	ResumeToken   string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("platform %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("platform %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError extracts a platform error from an error chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsKind reports whether err is a platform error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	pe, ok := AsError(err)
	return ok && pe.Kind == kind
}

// DirectMessage is one inbox message as seen by the bot account.
type DirectMessage struct {
	SenderHandle string
	Text         string
}

// MediaResource is one downloadable payload within a post.
type MediaResource struct {
	ID   string
	Kind domain.MediaKind
	URL  string
	// Size is the platform-reported byte size, zero when unknown.
	Size int64
}

// MediaInfo is the platform-reported description of a post, reel or story.
type MediaInfo struct {
	Caption        string
	AuthorHandle   string
	AuthorName     string
	SourceURL      string
	Resources      []MediaResource
	LikeCount      int
	CommentCount   int
	AuthorVerified bool
}

// Credentials are the bot account's login credentials.
type Credentials struct {
	Username string
	Password string
}

// Client is the capability object for one authenticated platform account.
// The session manager owns construction, session import/export and lifetime;
// other components only ever receive a ready-to-use Client.
type Client interface {
	// Login authenticates with fresh credentials. May return an Error of kind
	// KindAuthChallenge carrying a resume token.
	Login(ctx context.Context, creds Credentials) error

	// ResumeChallenge completes a previously interrupted login.
	ResumeChallenge(ctx context.Context, resumeToken, proof string) error

	// ImportSession restores a previously exported serialized session.
	ImportSession(blob []byte) error

	// ExportSession serializes the authenticated session state.
	ExportSession() ([]byte, error)

	// Validate performs a cheap authenticated probe.
	Validate(ctx context.Context) error

	// DirectMessagesFrom lists recent inbox messages sent by the given handle,
	// including messages still sitting in the pending-request inbox.
	DirectMessagesFrom(ctx context.Context, handle string, limit int) ([]DirectMessage, error)

	// MediaInfo resolves a content reference to its description and resources.
	MediaInfo(ctx context.Context, ref domain.ContentRef) (*MediaInfo, error)

	// DownloadResource fetches one resource into dir and returns the file path.
	DownloadResource(ctx context.Context, res MediaResource, dir string) (string, error)
}

// ClientFactory constructs a fresh, unauthenticated platform client.
type ClientFactory func() Client
