package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// RefKind classifies a content reference.
type RefKind string

const (
	// RefPost is a platform-native photo or album post.
	RefPost RefKind = "post"
	// RefReel is a platform-native short video.
	RefReel RefKind = "reel"
	// RefIGTV is a platform-native long-form video.
	RefIGTV RefKind = "igtv"
	// RefStory is a platform-native ephemeral story.
	RefStory RefKind = "story"
	// RefGenericURL is any other URL, served only by the fallback engine.
	RefGenericURL RefKind = "url"
)

// MediaKind classifies a resolved media item.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// ContentRef is a parsed content reference: either a platform-native
// identifier or a generic URL for the fallback engine.
type ContentRef struct {
	Kind      RefKind `json:"kind"`
	URL       string  `json:"url"`
	Shortcode string  `json:"shortcode,omitempty"`
	StoryPK   string  `json:"story_pk,omitempty"`
}

// Native reports whether the reference carries a platform-native identifier.
func (r ContentRef) Native() bool {
	return r.Kind != RefGenericURL
}

// MediaMetadata carries post metadata available only on the native path.
type MediaMetadata struct {
	Caption        string `json:"caption"`
	AuthorHandle   string `json:"author_handle"`
	AuthorName     string `json:"author_name"`
	SourceURL      string `json:"source_url"`
	LikeCount      int    `json:"like_count"`
	CommentCount   int    `json:"comment_count"`
	AuthorVerified bool   `json:"author_verified"`
}

// MediaItem is one resolved media payload on disk.
type MediaItem struct {
	Metadata *MediaMetadata `json:"metadata,omitempty"`
	Path     string         `json:"path"`
	Kind     MediaKind      `json:"kind"`
	Size     int64          `json:"size"`
}

var (
	postPattern  = regexp.MustCompile(`instagram\.com/(p|reel|tv)/([A-Za-z0-9_-]+)`)
	storyPattern = regexp.MustCompile(`instagram\.com/stories/([A-Za-z0-9._]+)/(\d+)`)
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)
)

// ParseContentRef extracts a content reference from free-form message text.
// Platform-native references win over generic URL classification. Returns a
// validation error when the text carries no usable reference.
func ParseContentRef(text string) (ContentRef, error) {
	raw := urlPattern.FindString(text)
	if raw == "" {
		return ContentRef{}, NewValidationError("NO_CONTENT_REF", "no URL found in text", nil)
	}
	raw = strings.TrimRight(raw, ".,;:!?")

	if isPlatformHost(raw) {
		if m := storyPattern.FindStringSubmatch(raw); m != nil {
			return ContentRef{Kind: RefStory, URL: raw, StoryPK: m[2]}, nil
		}
		if m := postPattern.FindStringSubmatch(raw); m != nil {
			kind := RefPost
			switch m[1] {
			case "reel":
				kind = RefReel
			case "tv":
				kind = RefIGTV
			}
			return ContentRef{Kind: kind, URL: raw, Shortcode: m[2]}, nil
		}
		// A platform URL with no recognizable identifier still goes down the
		// native path first; the platform decides whether it resolves.
		return ContentRef{Kind: RefGenericURL, URL: raw}, nil
	}

	return ContentRef{Kind: RefGenericURL, URL: raw}, nil
}

func isPlatformHost(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host == "instagram.com"
}
