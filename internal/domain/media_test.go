package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentRef(t *testing.T) {
	t.Run("post link", func(t *testing.T) {
		ref, err := ParseContentRef("https://www.instagram.com/p/Cxyz123_-a/")
		require.NoError(t, err)
		assert.Equal(t, RefPost, ref.Kind)
		assert.Equal(t, "Cxyz123_-a", ref.Shortcode)
		assert.True(t, ref.Native())
	})

	t.Run("reel link", func(t *testing.T) {
		ref, err := ParseContentRef("https://instagram.com/reel/AbCdEfG/?igshid=xyz")
		require.NoError(t, err)
		assert.Equal(t, RefReel, ref.Kind)
		assert.Equal(t, "AbCdEfG", ref.Shortcode)
	})

	t.Run("igtv link", func(t *testing.T) {
		ref, err := ParseContentRef("https://www.instagram.com/tv/XyZ987/")
		require.NoError(t, err)
		assert.Equal(t, RefIGTV, ref.Kind)
	})

	t.Run("story link", func(t *testing.T) {
		ref, err := ParseContentRef("https://www.instagram.com/stories/somebody/3141592653589793238/")
		require.NoError(t, err)
		assert.Equal(t, RefStory, ref.Kind)
		assert.Equal(t, "3141592653589793238", ref.StoryPK)
		assert.True(t, ref.Native())
	})

	t.Run("generic url is not native", func(t *testing.T) {
		ref, err := ParseContentRef("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
		require.NoError(t, err)
		assert.Equal(t, RefGenericURL, ref.Kind)
		assert.False(t, ref.Native())
	})

	t.Run("platform profile link stays generic", func(t *testing.T) {
		// A profile page has no extractable shortcode or story id.
		ref, err := ParseContentRef("https://www.instagram.com/somebody/")
		require.NoError(t, err)
		assert.Equal(t, RefGenericURL, ref.Kind)
	})

	t.Run("url embedded in message text", func(t *testing.T) {
		ref, err := ParseContentRef("check this out https://instagram.com/p/Zz9/ please")
		require.NoError(t, err)
		assert.Equal(t, RefPost, ref.Kind)
		assert.Equal(t, "Zz9", ref.Shortcode)
	})

	t.Run("plain text rejected", func(t *testing.T) {
		_, err := ParseContentRef("hello there")
		require.Error(t, err)
		assert.True(t, HasCode(err, "NO_CONTENT_REF"))
	})

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := ParseContentRef("")
		require.Error(t, err)
	})
}
