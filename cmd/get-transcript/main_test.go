package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caption "github.com/lincaiyong/youtube-transcript"
)

type stubTrack struct {
	code    string
	entries []caption.Entry
}

func (s stubTrack) LanguageCode() string { return s.code }
func (s stubTrack) LanguageName() string { return "stub " + s.code }
func (s stubTrack) Fetch(context.Context) ([]caption.Entry, error) {
	return s.entries, nil
}

// recordingLister returns fixed tracks and remembers the IDs it was asked for.
type recordingLister struct {
	tracks []caption.Descriptor
	err    error
	ids    []string
}

func (l *recordingLister) List(_ context.Context, videoID string) ([]caption.Descriptor, error) {
	l.ids = append(l.ids, videoID)
	return l.tracks, l.err
}

func englishLister() *recordingLister {
	return &recordingLister{tracks: []caption.Descriptor{
		stubTrack{code: "fr", entries: []caption.Entry{{Text: "Bonjour", Start: 0, Duration: 1}}},
		stubTrack{code: "en-US", entries: []caption.Entry{
			{Text: "Hello", Start: 1, Duration: 1.5},
			{Text: "world", Start: 2.5, Duration: 2},
		}},
	}}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"YT_LANGUAGES", "YT_HTTP_TIMEOUT", "YT_RETRY_TIMEOUT", "YT_RATE_LIMIT"} {
		t.Setenv(k, "")
	}
}

func TestRunWithoutVideoID(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(nil, &stdout, &stderr, englishLister())

	assert.Equal(t, 1, code)
	assert.JSONEq(t, `{"success":false,"error":"No video ID provided"}`, stdout.String())
}

func TestRunSuccess(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer
	lister := englishLister()

	code := run([]string{"https://youtu.be/dQw4w9WgXcQ"}, &stdout, &stderr, lister)

	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"dQw4w9WgXcQ"}, lister.ids)
	assert.Equal(t, 1, strings.Count(stdout.String(), "\n"))
	assert.JSONEq(t, `{"success":true,"videoId":"dQw4w9WgXcQ","transcript":"Hello world","length":11,"language":"en-US"}`, stdout.String())
}

func TestRunFailureResultExitsZero(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"dQw4w9WgXcQ"}, &stdout, &stderr, &recordingLister{err: errors.New("Video unavailable")})

	assert.Equal(t, 0, code)
	assert.Equal(t, 1, strings.Count(stdout.String(), "\n"))
	assert.JSONEq(t, `{"success":false,"error":"Video unavailable"}`, stdout.String())
}

func TestRunDashPrefixedVideoID(t *testing.T) {
	clearEnv(t)
	for _, args := range [][]string{
		{"-uvhTm0eZ0A"},
		{"--", "-uvhTm0eZ0A"},
		{"--lang", "en", "-uvhTm0eZ0A"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			lister := englishLister()

			code := run(args, &stdout, &stderr, lister)

			assert.Equal(t, 0, code)
			assert.Equal(t, []string{"-uvhTm0eZ0A"}, lister.ids)
			assert.Contains(t, stdout.String(), `"videoId":"-uvhTm0eZ0A"`)
		})
	}
}

func TestRunHelpStillPrintsJSON(t *testing.T) {
	for _, arg := range []string{"-h", "--help"} {
		t.Run(arg, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			code := run([]string{arg}, &stdout, &stderr, englishLister())

			assert.Equal(t, 1, code)
			assert.JSONEq(t, `{"success":false,"error":"No video ID provided"}`, stdout.String())
			assert.Contains(t, stderr.String(), "Usage:")
		})
	}
}

func TestRunBadFlagValuePrintsJSON(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"--timeout", "soon", "dQw4w9WgXcQ"}, &stdout, &stderr, englishLister())

	assert.Equal(t, 1, code)
	var res caption.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "soon")
}

func TestRunConfigErrorPrintsJSON(t *testing.T) {
	clearEnv(t)
	t.Setenv("YT_HTTP_TIMEOUT", "later")
	var stdout, stderr bytes.Buffer

	code := run([]string{"dQw4w9WgXcQ"}, &stdout, &stderr, englishLister())

	assert.Equal(t, 1, code)
	var res caption.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.Contains(t, res.Error, "YT_HTTP_TIMEOUT")
}

func TestRunLanguageFlag(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"go-style flag", []string{"-lang", "fr", "v"}, `"language":"fr"`},
		{"long flag with value", []string{"--lang=fr", "v"}, `"language":"fr"`},
		{"blank list keeps english", []string{"-lang", ",", "v"}, `"language":"en-US"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			code := run(tt.args, &stdout, &stderr, englishLister())

			assert.Equal(t, 0, code)
			assert.Contains(t, stdout.String(), tt.want)
		})
	}
}

func TestRunWritesSubtitleFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	srt := filepath.Join(dir, "out.srt")
	vtt := filepath.Join(dir, "out.vtt")
	var stdout, stderr bytes.Buffer

	code := run([]string{"dQw4w9WgXcQ", "-srt", srt, "--vtt", vtt}, &stdout, &stderr, englishLister())
	require.Equal(t, 0, code)

	data, err := os.ReadFile(srt)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,500\nHello\n\n2\n00:00:02,500 --> 00:00:04,500\nworld\n\n", string(data))

	data, err = os.ReadFile(vtt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "WEBVTT\n\n00:00:01.000 --> 00:00:02.500\nHello"))
}

func TestRunDebugLogsTracks(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-debug", "dQw4w9WgXcQ"}, &stdout, &stderr, englishLister())

	assert.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "debug: found transcript")
	assert.Contains(t, stderr.String(), "language=fr")
	assert.Contains(t, stderr.String(), "text=Bonjour")
	assert.Contains(t, stdout.String(), `"language":"en-US"`)
}

func TestNormalizeArgs(t *testing.T) {
	flags := newRootCmd(&app{}).Flags()

	assert.Equal(t,
		[]string{"--lang", "ja", "--debug", "--timeout=5s", "--", "abc", "-xyz"},
		normalizeArgs(flags, []string{"-lang", "ja", "abc", "-debug", "-timeout=5s", "-xyz"}))
	assert.Equal(t,
		[]string{"--help", "--", "-lang"},
		normalizeArgs(flags, []string{"-h", "--", "-lang"}))
}
