package caption

import (
	"regexp"
	"strings"
)

var videoURLRE = regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`)

// ExtractVideoID returns the video ID embedded in a YouTube URL. Input that is
// not a recognized URL is returned trimmed but otherwise unchanged.
func ExtractVideoID(s string) string {
	s = strings.TrimSpace(s)
	if m := videoURLRE.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	return s
}

// IsVideoURL reports whether s is a YouTube URL with a recognizable video ID.
func IsVideoURL(s string) bool {
	return videoURLRE.MatchString(s)
}
