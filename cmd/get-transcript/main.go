package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	caption "github.com/lincaiyong/youtube-transcript"
)

const noVideoID = "No video ID provided"

var errNegativeTimeout = errors.New("invalid --timeout: must not be negative")

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, nil))
}

type options struct {
	lang    string
	timeout time.Duration
	srt     string
	vtt     string
	debug   bool
}

// app carries the outcome of one invocation. Every path writes exactly one
// JSON line to stdout.
type app struct {
	stdout io.Writer
	logger *slog.Logger
	lister caption.Lister
	wrote  bool
	code   int
}

func (a *app) emit(r caption.Result, code int) {
	data, err := json.Marshal(r)
	if err != nil {
		data = []byte(`{"success":false,"error":"failed to encode result"}`)
	}
	fmt.Fprintln(a.stdout, string(data))
	a.wrote = true
	a.code = code
}

// run executes the command. A nil lister means the YouTube Innertube client.
func run(args []string, stdout, stderr io.Writer, lister caption.Lister) int {
	a := &app{
		stdout: stdout,
		logger: slog.New(slog.NewTextHandler(stderr, nil)),
		lister: lister,
	}

	cmd := newRootCmd(a)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.SetArgs(normalizeArgs(cmd.Flags(), args))

	if err := cmd.Execute(); err != nil && !a.wrote {
		a.emit(caption.Result{Error: err.Error()}, 1)
	}
	if !a.wrote {
		// help was requested instead of a transcript
		a.emit(caption.Result{Error: noVideoID}, 1)
	}
	return a.code
}

func newRootCmd(a *app) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "get-transcript [flags] VIDEO_ID|URL",
		Short: "Print the transcript of a YouTube video as one line of JSON",
		Example: `  get-transcript dQw4w9WgXcQ
  get-transcript "https://www.youtube.com/watch?v=dQw4w9WgXcQ" --lang ja,en
  get-transcript -- -uvhTm0eZ0A
  get-transcript dQw4w9WgXcQ --srt out.srt --vtt out.vtt`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transcribe(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.lang, "lang", "", `comma-separated preferred language-code prefixes (default from YT_LANGUAGES or "en")`)
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-request HTTP timeout (default from YT_HTTP_TIMEOUT or 30s)")
	cmd.Flags().StringVar(&opts.srt, "srt", "", "also write the selected transcript as SRT to this file")
	cmd.Flags().StringVar(&opts.vtt, "vtt", "", "also write the selected transcript as WebVTT to this file")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log every available transcript and its first entry")
	cmd.InitDefaultHelpFlag()

	return cmd
}

// normalizeArgs lets the command take Go-style single-dash long flags and
// video IDs that begin with '-'. Known flags are rewritten to their long form;
// everything else becomes a positional argument after "--".
func normalizeArgs(flags *pflag.FlagSet, args []string) []string {
	var named, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			positional = append(positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		f := flags.Lookup(name)
		if f == nil && len(name) == 1 {
			f = flags.ShorthandLookup(name)
		}
		if f == nil {
			positional = append(positional, arg)
			continue
		}

		if hasValue {
			named = append(named, "--"+f.Name+"="+value)
			continue
		}
		named = append(named, "--"+f.Name)
		if f.NoOptDefVal == "" && i+1 < len(args) {
			i++
			named = append(named, args[i])
		}
	}
	return append(append(named, "--"), positional...)
}

func (a *app) transcribe(ctx context.Context, opts options, args []string) error {
	if len(args) < 1 {
		a.emit(caption.Result{Error: noVideoID}, 1)
		return nil
	}

	cfg, err := caption.LoadConfig()
	if err != nil {
		return err
	}
	if opts.lang != "" {
		cfg.Languages = caption.SplitLanguages(opts.lang)
	}
	switch {
	case opts.timeout < 0:
		return errNegativeTimeout
	case opts.timeout > 0:
		cfg.HTTPTimeout = opts.timeout
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	lister := a.lister
	if lister == nil {
		lister = cfg.NewClient(a.logger)
	}
	videoID := caption.ExtractVideoID(args[0])

	if opts.debug {
		debugTracks(ctx, a.logger, lister, videoID)
	}

	result := cfg.NewResolver(a.logger).Resolve(ctx, videoID, lister)
	a.emit(result, 0)

	if result.Success {
		a.save(opts.srt, caption.FormatSRT, result.Entries)
		a.save(opts.vtt, caption.FormatVTT, result.Entries)
	}
	return nil
}

func (a *app) save(filename string, format func([]caption.Entry) string, entries []caption.Entry) {
	if filename == "" {
		return
	}
	if err := caption.WriteFile(filename, format(entries)); err != nil {
		a.logger.Error("write transcript file", slog.Any("err", err))
	}
}

func debugTracks(ctx context.Context, logger *slog.Logger, lister caption.Lister, videoID string) {
	descriptors, err := lister.List(ctx, videoID)
	if err != nil {
		logger.Warn("debug: list failed", slog.String("id", videoID), slog.Any("err", err))
		return
	}
	for _, d := range descriptors {
		logger.Info("debug: found transcript",
			slog.String("language", d.LanguageCode()),
			slog.String("name", d.LanguageName()))
		entries, err := d.Fetch(ctx)
		if err != nil {
			logger.Warn("debug: fetch failed", slog.String("language", d.LanguageCode()), slog.Any("err", err))
			continue
		}
		if len(entries) > 0 {
			logger.Info("debug: first entry",
				slog.Int("entries", len(entries)),
				slog.String("text", entries[0].Text),
				slog.Float64("start", entries[0].Start),
				slog.Float64("duration", entries[0].Duration))
		}
	}
}
