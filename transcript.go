package caption

import (
	"context"
	"encoding/json"
)

// Entry is one caption unit. Start and Duration are in seconds.
type Entry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Descriptor identifies one available transcript before its content is fetched.
type Descriptor interface {
	LanguageCode() string
	LanguageName() string
	Fetch(ctx context.Context) ([]Entry, error)
}

// Lister enumerates the transcripts available for a video.
type Lister interface {
	List(ctx context.Context, videoID string) ([]Descriptor, error)
}

// ListerFunc adapts a plain function to the Lister interface.
type ListerFunc func(ctx context.Context, videoID string) ([]Descriptor, error)

// List calls f(ctx, videoID).
func (f ListerFunc) List(ctx context.Context, videoID string) ([]Descriptor, error) {
	return f(ctx, videoID)
}

// Result is the outcome of resolving a transcript. Either the success fields or
// Error are populated, never both.
type Result struct {
	Success    bool   `json:"success"`
	VideoID    string `json:"videoId,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Length     int    `json:"length,omitempty"`
	Language   string `json:"language,omitempty"`
	Error      string `json:"error,omitempty"`

	// Entries of the selected transcript, kept for SRT/VTT output.
	Entries []Entry `json:"-"`
}

type successResult struct {
	Success    bool   `json:"success"`
	VideoID    string `json:"videoId"`
	Transcript string `json:"transcript"`
	Length     int    `json:"length"`
	Language   string `json:"language"`
}

type failureResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// MarshalJSON emits exactly one of the two result shapes. An empty transcript on
// success still serializes "transcript" and "length".
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(successResult{
			Success:    true,
			VideoID:    r.VideoID,
			Transcript: r.Transcript,
			Length:     r.Length,
			Language:   r.Language,
		})
	}
	return json.Marshal(failureResult{Error: r.Error})
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}
