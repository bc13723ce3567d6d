package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerificationCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateVerificationCode()
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected character %q", r)
		}
		seen[code] = true
	}
	// 50 draws from a 32^8 space colliding would point at a broken source.
	assert.Greater(t, len(seen), 45)
}

func TestValidHandle(t *testing.T) {
	valid := []string{"somebody", "some.body", "some_body", "a", "user123", "A.B_c9"}
	for _, h := range valid {
		assert.True(t, ValidHandle(h), "expected %q to be valid", h)
	}

	invalid := []string{"", "with space", "@somebody", "way.too.long.handle.exceeding.thirty.chars", "emoji😀", "dash-ed"}
	for _, h := range invalid {
		assert.False(t, ValidHandle(h), "expected %q to be invalid", h)
	}
}

func TestVerificationChallenge_Confirm(t *testing.T) {
	now := time.Now()

	t.Run("pending within window confirms", func(t *testing.T) {
		ch := &VerificationChallenge{Status: ChallengePending, ExpiresAt: now.Add(time.Minute)}
		assert.True(t, ch.Confirm(now))
		assert.Equal(t, ChallengeConfirmed, ch.Status)
	})

	t.Run("expired window never confirms", func(t *testing.T) {
		ch := &VerificationChallenge{Status: ChallengePending, ExpiresAt: now.Add(-time.Second)}
		assert.False(t, ch.Confirm(now))
		assert.Equal(t, ChallengePending, ch.Status)
	})

	t.Run("superseded never confirms", func(t *testing.T) {
		ch := &VerificationChallenge{Status: ChallengeSuperseded, ExpiresAt: now.Add(time.Minute)}
		assert.False(t, ch.Confirm(now))
		assert.Equal(t, ChallengeSuperseded, ch.Status)
	})

	t.Run("confirm is not repeatable", func(t *testing.T) {
		ch := &VerificationChallenge{Status: ChallengePending, ExpiresAt: now.Add(time.Minute)}
		require.True(t, ch.Confirm(now))
		assert.False(t, ch.Confirm(now))
	})
}

func TestVerificationChallenge_Expire(t *testing.T) {
	ch := &VerificationChallenge{Status: ChallengePending}
	ch.Expire()
	assert.Equal(t, ChallengeExpired, ch.Status)

	// Terminal states stay put.
	confirmed := &VerificationChallenge{Status: ChallengeConfirmed}
	confirmed.Expire()
	assert.Equal(t, ChallengeConfirmed, confirmed.Status)
}
