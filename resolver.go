package caption

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// ErrNoTranscriptsAvailable is returned when a video has no transcripts at all.
var ErrNoTranscriptsAvailable = errors.New("NoTranscriptsAvailable")

// CollaboratorError wraps a failure raised while listing or fetching transcripts.
// Its message is the underlying error's message, unchanged.
type CollaboratorError struct {
	Op  string // "list" or "fetch"
	Err error
}

func (e *CollaboratorError) Error() string { return e.Err.Error() }

func (e *CollaboratorError) Unwrap() error { return e.Err }

// DefaultLanguages is the language-code prefix preference used when none is configured.
var DefaultLanguages = []string{"en"}

// Resolver picks the best transcript for a video and flattens it into text.
// It keeps no state between calls and is safe for concurrent use.
type Resolver struct {
	languages []string
	logger    *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPreferredLanguages sets the ordered, case-sensitive language-code prefixes to prefer.
func WithPreferredLanguages(prefixes ...string) ResolverOption {
	return func(r *Resolver) {
		r.languages = append([]string(nil), prefixes...)
	}
}

// WithResolverLogger sets the logger used for failure reporting.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver returns a Resolver preferring DefaultLanguages unless configured otherwise.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{languages: DefaultLanguages}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Select returns the descriptor to use: the first one matching the earliest
// preferred prefix, otherwise the first one in list order.
func (r *Resolver) Select(descriptors []Descriptor) (Descriptor, error) {
	if len(descriptors) == 0 {
		return nil, ErrNoTranscriptsAvailable
	}
	for _, prefix := range r.languages {
		for _, d := range descriptors {
			if strings.HasPrefix(d.LanguageCode(), prefix) {
				return d, nil
			}
		}
	}
	return descriptors[0], nil
}

// JoinEntries joins entry texts with single spaces, keeping empty texts.
func JoinEntries(entries []Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Text
	}
	return strings.Join(parts, " ")
}

// Fetch lists, selects and fetches a transcript, returning typed errors.
func (r *Resolver) Fetch(ctx context.Context, videoID string, lister Lister) (Descriptor, []Entry, error) {
	descriptors, err := lister.List(ctx, videoID)
	if err != nil {
		return nil, nil, &CollaboratorError{Op: "list", Err: err}
	}
	d, err := r.Select(descriptors)
	if err != nil {
		return nil, nil, err
	}
	entries, err := d.Fetch(ctx)
	if err != nil {
		return d, nil, &CollaboratorError{Op: "fetch", Err: err}
	}
	return d, entries, nil
}

// Resolve produces the Result for videoID. Every failure is reported in the
// returned Result; Resolve never returns an error.
func (r *Resolver) Resolve(ctx context.Context, videoID string, lister Lister) Result {
	d, entries, err := r.Fetch(ctx, videoID, lister)
	if err != nil {
		r.logger.Warn("transcript: resolve failed",
			slog.String("id", videoID), slog.Any("err", err))
		return failure(err)
	}

	text := JoinEntries(entries)
	return Result{
		Success:    true,
		VideoID:    videoID,
		Transcript: text,
		Length:     utf8.RuneCountInString(text),
		Language:   d.LanguageCode(),
		Entries:    entries,
	}
}
