package caption

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// FormatText joins entries into plain text, one entry per line.
func FormatText(entries []Entry) string {
	var result strings.Builder
	for _, e := range entries {
		result.WriteString(e.Text)
		result.WriteString("\n")
	}
	return result.String()
}

// FormatSRT renders entries as a SubRip document.
func FormatSRT(entries []Entry) string {
	var result strings.Builder

	for i, e := range entries {
		result.WriteString(fmt.Sprintf("%d\n", i+1))
		result.WriteString(fmt.Sprintf("%s --> %s\n",
			formatSRTTime(e.Start),
			formatSRTTime(e.Start+e.Duration)))
		result.WriteString(e.Text)
		result.WriteString("\n\n")
	}

	return result.String()
}

// FormatVTT renders entries as a WebVTT document.
func FormatVTT(entries []Entry) string {
	var result strings.Builder

	result.WriteString("WEBVTT\n\n")

	for _, e := range entries {
		result.WriteString(fmt.Sprintf("%s --> %s\n",
			formatVTTTime(e.Start),
			formatVTTTime(e.Start+e.Duration)))
		result.WriteString(e.Text)
		result.WriteString("\n\n")
	}

	return result.String()
}

// WriteFile writes content to filename.
func WriteFile(filename, content string) error {
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func splitTime(seconds float64) (hours, minutes, secs, millis int) {
	t := time.Duration(seconds*1000+0.5) * time.Millisecond
	hours = int(t.Hours())
	minutes = int(t.Minutes()) % 60
	secs = int(t.Seconds()) % 60
	millis = int(t.Milliseconds()) % 1000
	return
}

func formatSRTTime(seconds float64) string {
	h, m, s, ms := splitTime(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func formatVTTTime(seconds float64) string {
	h, m, s, ms := splitTime(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
