// Package video turns YouTube and Vimeo page URLs into embeddable players.
package video

import "regexp"

var (
	youtubeID   = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
	vimeoID     = regexp.MustCompile(`vimeo\.com/(?:.*/)?(\d+)`)
	youtubeHost = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.)?(?:youtube\.com|youtu\.be)/.+`)
	vimeoHost   = regexp.MustCompile(`^(?:https?://)?(?:www\.|player\.)?vimeo\.com/.+`)
)

// Provider names a supported video host.
type Provider string

const (
	ProviderNone    Provider = ""
	ProviderYouTube Provider = "youtube"
	ProviderVimeo   Provider = "vimeo"
)

// YouTubeID extracts the 11 character video id.
func YouTubeID(raw string) (string, bool) {
	m := youtubeID.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// VimeoID extracts the numeric video id.
func VimeoID(raw string) (string, bool) {
	m := vimeoID.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Detect reports which host raw points to.
func Detect(raw string) Provider {
	if _, ok := YouTubeID(raw); ok {
		return ProviderYouTube
	}
	if _, ok := VimeoID(raw); ok {
		return ProviderVimeo
	}
	return ProviderNone
}

// EmbedURL returns the player URL for raw.
func EmbedURL(raw string) (string, bool) {
	if id, ok := YouTubeID(raw); ok {
		return "https://www.youtube.com/embed/" + id + "?rel=0&modestbranding=1", true
	}
	if id, ok := VimeoID(raw); ok {
		return "https://player.vimeo.com/video/" + id, true
	}
	return "", false
}

// ThumbnailURL returns a preview image. Only YouTube exposes one without an
// API call.
func ThumbnailURL(raw string) (string, bool) {
	if id, ok := YouTubeID(raw); ok {
		return "https://img.youtube.com/vi/" + id + "/maxresdefault.jpg", true
	}
	return "", false
}

// IsValid reports whether raw looks like a YouTube or Vimeo URL.
func IsValid(raw string) bool {
	return youtubeHost.MatchString(raw) || vimeoHost.MatchString(raw)
}
