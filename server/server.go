// Package server exposes transcript resolution over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	caption "github.com/lincaiyong/youtube-transcript"
)

// ChannelSource scrapes the videos listed on a channel page.
type ChannelSource interface {
	Channel(ctx context.Context, channelURL string) (*caption.Channel, error)
}

// Handler serves transcript requests using a resolver and a lister.
type Handler struct {
	resolver *caption.Resolver
	lister   caption.Lister
	channels ChannelSource
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(resolver *caption.Resolver, lister caption.Lister, channels ChannelSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{resolver: resolver, lister: lister, channels: channels, logger: logger}
}

// NewRouter wires the routes and middleware.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(h.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.Info)
	r.Get("/health", h.Health)
	r.Get("/transcript/{videoID}", h.Transcript)
	r.Post("/video", h.Video)
	r.Post("/channel", h.Channel)

	return r
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// logRequests logs every request except successful health checks.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sw, r)
		if r.URL.Path == "/health" && sw.statusCode < 400 {
			return
		}
		h.logger.Info("http",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.statusCode),
			slog.Duration("elapsed", time.Since(start)))
	})
}

// Info describes the service.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "YouTube Transcript Service",
		"endpoints": map[string]string{
			"/transcript/{videoID}": "GET - transcript for a video ID",
			"/video":                "POST - transcript for {\"videoUrl\": ...}",
			"/channel":              "POST - channel videos and transcripts for {\"channelUrl\": ...}",
		},
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Transcript resolves the transcript for the videoID path parameter.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	writeJSON(w, http.StatusOK, h.resolver.Resolve(r.Context(), videoID, h.lister))
}

type videoRequest struct {
	VideoURL string `json:"videoUrl"`
}

// Video resolves the transcript for the video named by a YouTube URL.
func (h *Handler) Video(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, caption.Result{Error: "Invalid request body"})
		return
	}
	if req.VideoURL == "" {
		writeJSON(w, http.StatusBadRequest, caption.Result{Error: "Missing videoUrl"})
		return
	}
	if !caption.IsVideoURL(req.VideoURL) {
		writeJSON(w, http.StatusBadRequest, caption.Result{Error: "Invalid YouTube video URL"})
		return
	}

	videoID := caption.ExtractVideoID(req.VideoURL)
	writeJSON(w, http.StatusOK, h.resolver.Resolve(r.Context(), videoID, h.lister))
}

type channelRequest struct {
	ChannelURL string `json:"channelUrl"`
}

type channelVideo struct {
	caption.ChannelVideo
	URL           string  `json:"url"`
	HasTranscript bool    `json:"hasTranscript"`
	Transcript    *string `json:"transcript"`
}

type channelStats struct {
	VideosFound          int `json:"videosFound"`
	VideosProcessed      int `json:"videosProcessed"`
	TranscriptsExtracted int `json:"transcriptsExtracted"`
}

type channelResponse struct {
	Success bool            `json:"success"`
	Channel caption.Channel `json:"channel"`
	Stats   channelStats    `json:"stats"`
	Videos  []channelVideo  `json:"videos"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Channel scrapes a channel's most popular videos and resolves a transcript for each.
func (h *Handler) Channel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if req.ChannelURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing channelUrl"})
		return
	}
	ref, ok := caption.ParseChannelURL(req.ChannelURL)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid YouTube channel URL"})
		return
	}

	ch, err := h.channels.Channel(r.Context(), ref.URL())
	if err != nil {
		h.logger.Error("channel: scrape failed", slog.String("url", ref.URL()), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to process channel", Details: err.Error()})
		return
	}

	resp := channelResponse{
		Success: true,
		Channel: *ch,
		Videos:  make([]channelVideo, 0, len(ch.Videos)),
	}
	for i, v := range ch.Videos {
		h.logger.Info("channel: processing video",
			slog.Int("n", i+1), slog.Int("of", len(ch.Videos)), slog.String("id", v.VideoID))

		cv := channelVideo{ChannelVideo: v, URL: "https://www.youtube.com/watch?v=" + v.VideoID}
		if res := h.resolver.Resolve(r.Context(), v.VideoID, h.lister); res.Success && res.Transcript != "" {
			text := res.Transcript
			cv.HasTranscript = true
			cv.Transcript = &text
			resp.Stats.TranscriptsExtracted++
		}
		resp.Videos = append(resp.Videos, cv)
	}
	resp.Stats.VideosFound = len(ch.Videos)
	resp.Stats.VideosProcessed = len(resp.Videos)

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
