package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxteam/mediabot/internal/domain"
	"github.com/mxteam/mediabot/internal/platform"
	"github.com/mxteam/mediabot/internal/repository"
	"github.com/mxteam/mediabot/internal/testutil"
)

type verificationFixture struct {
	service    *VerificationService
	challenges domain.ChallengeRepository
	links      domain.LinkedAccountRepository
	client     *testutil.MockPlatformClient
	now        time.Time
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()

	f := &verificationFixture{
		challenges: repository.NewMemoryChallengeRepository(),
		links:      repository.NewMemoryLinkedAccountRepository(),
		client:     &testutil.MockPlatformClient{},
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	sessions, _ := newTestSessionManager(f.client)
	_, err := sessions.Login(context.Background(), testAccount, platform.Credentials{Username: "bot", Password: "pw"})
	require.NoError(t, err)

	f.service = NewVerificationService(VerificationConfig{
		Challenges:   f.challenges,
		Links:        f.links,
		Sessions:     sessions,
		BotAccountID: testAccount,
		Now:          func() time.Time { return f.now },
	})
	return f
}

func (f *verificationFixture) inbox(messages ...platform.DirectMessage) {
	f.client.DirectMessagesFunc = func(_ context.Context, handle string, _ int) ([]platform.DirectMessage, error) {
		var fromHandle []platform.DirectMessage
		for _, msg := range messages {
			if msg.SenderHandle == handle {
				fromHandle = append(fromHandle, msg)
			}
		}
		return fromHandle, nil
	}
}

func TestVerificationService_IssueChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a pending code with the configured window", func(t *testing.T) {
		f := newVerificationFixture(t)

		ch, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.NoError(t, err)
		assert.Equal(t, domain.ChallengePending, ch.Status)
		assert.Len(t, ch.Code, domain.CodeLength)
		assert.Equal(t, f.now.Add(30*time.Minute), ch.ExpiresAt)
	})

	t.Run("rejects a malformed handle", func(t *testing.T) {
		f := newVerificationFixture(t)

		_, err := f.service.IssueChallenge(ctx, "user1", "not a handle!")
		require.Error(t, err)
		assert.True(t, domain.HasCode(err, "INVALID_HANDLE"))
	})

	t.Run("reissue supersedes the previous code", func(t *testing.T) {
		f := newVerificationFixture(t)

		first, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.NoError(t, err)
		second, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.NoError(t, err)
		require.NotEqual(t, first.Code, second.Code)

		// A DM carrying the superseded code must not confirm.
		f.inbox(platform.DirectMessage{SenderHandle: "somebody", Text: first.Code})
		result, err := f.service.CheckVerification(ctx, "user1", "somebody")
		require.NoError(t, err)
		assert.Equal(t, CheckStillPending, result)

		f.inbox(platform.DirectMessage{SenderHandle: "somebody", Text: second.Code})
		result, err = f.service.CheckVerification(ctx, "user1", "somebody")
		require.NoError(t, err)
		assert.Equal(t, CheckConfirmed, result)
	})

	t.Run("already linked handle conflicts", func(t *testing.T) {
		f := newVerificationFixture(t)
		require.NoError(t, f.links.Create(ctx, &domain.LinkedAccount{
			ID: "l1", UserID: "user1", Handle: "somebody", VerifiedAt: f.now,
		}))

		_, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.Error(t, err)
		assert.True(t, domain.HasCode(err, "ALREADY_LINKED"))
	})
}

func TestVerificationService_CheckVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("exact code from claimed handle confirms", func(t *testing.T) {
		f := newVerificationFixture(t)
		ch, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.NoError(t, err)

		f.inbox(
			platform.DirectMessage{SenderHandle: "somebody", Text: "hello"},
			platform.DirectMessage{SenderHandle: "somebody", Text: ch.Code},
		)
		result, err := f.service.CheckVerification(ctx, "user1", "somebody")
		require.NoError(t, err)
		assert.Equal(t, CheckConfirmed, result)

		links, err := f.links.ListByUser(ctx, "user1")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "somebody", links[0].Handle)
	})

	t.Run("code from a different sender does not confirm", func(t *testing.T) {
		f := newVerificationFixture(t)
		ch, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.NoError(t, err)

		f.inbox(platform.DirectMessage{SenderHandle: "impostor", Text: ch.Code})
		result, err := f.service.CheckVerification(ctx, "user1", "somebody")
		require.NoError(t, err)
		assert.Equal(t, CheckStillPending, result)
	})

	t.Run("near-miss codes do not confirm", func(t *testing.T) {
		f := newVerificationFixture(t)
		ch, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.NoError(t, err)

		f.inbox(
			platform.DirectMessage{SenderHandle: "somebody", Text: "code: " + ch.Code},
			platform.DirectMessage{SenderHandle: "somebody", Text: ch.Code[:domain.CodeLength-1]},
		)
		result, err := f.service.CheckVerification(ctx, "user1", "somebody")
		require.NoError(t, err)
		assert.Equal(t, CheckStillPending, result)
	})

	t.Run("check is idempotent after confirmation", func(t *testing.T) {
		f := newVerificationFixture(t)
		ch, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.NoError(t, err)

		f.inbox(platform.DirectMessage{SenderHandle: "somebody", Text: ch.Code})
		for i := 0; i < 3; i++ {
			result, err := f.service.CheckVerification(ctx, "user1", "somebody")
			require.NoError(t, err)
			assert.Equal(t, CheckConfirmed, result)
		}

		links, err := f.links.ListByUser(ctx, "user1")
		require.NoError(t, err)
		assert.Len(t, links, 1, "repeat checks must not duplicate the link")
	})

	t.Run("late DM after expiry reports expired, never confirmed", func(t *testing.T) {
		f := newVerificationFixture(t)
		ch, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.NoError(t, err)

		f.now = f.now.Add(31 * time.Minute)
		f.inbox(platform.DirectMessage{SenderHandle: "somebody", Text: ch.Code})

		result, err := f.service.CheckVerification(ctx, "user1", "somebody")
		require.NoError(t, err)
		assert.Equal(t, CheckExpired, result)

		links, err := f.links.ListByUser(ctx, "user1")
		require.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("no challenge reports not found", func(t *testing.T) {
		f := newVerificationFixture(t)

		result, err := f.service.CheckVerification(ctx, "user1", "somebody")
		require.NoError(t, err)
		assert.Equal(t, CheckNotFound, result)
	})

	t.Run("inbox read failure surfaces a domain error", func(t *testing.T) {
		f := newVerificationFixture(t)
		_, err := f.service.IssueChallenge(ctx, "user1", "somebody")
		require.NoError(t, err)

		f.client.DirectMessagesFunc = func(context.Context, string, int) ([]platform.DirectMessage, error) {
			return nil, &platform.Error{Kind: platform.KindRateLimited, Message: "slow down"}
		}
		_, err = f.service.CheckVerification(ctx, "user1", "somebody")
		require.Error(t, err)
		assert.True(t, domain.HasCode(err, domain.CodeRateLimited))
	})
}

func TestVerificationService_Unlink(t *testing.T) {
	ctx := context.Background()
	f := newVerificationFixture(t)

	ch, err := f.service.IssueChallenge(ctx, "user1", "somebody")
	require.NoError(t, err)
	f.inbox(platform.DirectMessage{SenderHandle: "somebody", Text: ch.Code})
	_, err = f.service.CheckVerification(ctx, "user1", "somebody")
	require.NoError(t, err)

	has, err := f.service.HasVerifiedAccount(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, f.service.Unlink(ctx, "user1", "somebody"))
	has, err = f.service.HasVerifiedAccount(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestVerificationService_AwaitConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newVerificationFixture(t)
	f.service.pollInterval = 5 * time.Millisecond

	ch, err := f.service.IssueChallenge(ctx, "user1", "somebody")
	require.NoError(t, err)

	// The DM arrives after the first poll already came back empty.
	var arrived atomic.Bool
	f.client.DirectMessagesFunc = func(context.Context, string, int) ([]platform.DirectMessage, error) {
		if !arrived.Load() {
			return nil, nil
		}
		return []platform.DirectMessage{{SenderHandle: "somebody", Text: ch.Code}}, nil
	}
	go func() {
		time.Sleep(15 * time.Millisecond)
		arrived.Store(true)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	result, err := f.service.AwaitConfirmation(waitCtx, "user1", "somebody")
	require.NoError(t, err)
	assert.Equal(t, CheckConfirmed, result)
}
