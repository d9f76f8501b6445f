package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/pipeline"
	"github.com/xhad/skim/pkg/processor"
	"github.com/xhad/skim/pkg/scraper"
)

//go:embed templates/index.html
var templateFS embed.FS

const relatedLimit = 3

type Config struct {
	Addr          string
	Sentences     int
	MinChars      int
	MinCharsFloor int
}

type Server struct {
	config   Config
	pipeline *pipeline.Pipeline
	tmpl     *template.Template
	upgrader websocket.Upgrader
}

type formValues struct {
	URL       string
	Sentences string
	MinChars  string
}

type formResult struct {
	Title    string
	URL      string
	Summary  []string
	FullText string
	Related  []models.Summary
}

type pageData struct {
	Form   formValues
	Result *formResult
	Error  string
}

type summarizeRequest struct {
	URL       string `json:"url"`
	Sentences int    `json:"sentences"`
	MinChars  int    `json:"min_chars"`
}

type summaryResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Summary   []string  `json:"summary"`
	FullText  string    `json:"full_text"`
	CreatedAt time.Time `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(config Config, p *pipeline.Pipeline) (*Server, error) {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.Sentences == 0 {
		config.Sentences = 5
	}
	if config.MinChars == 0 {
		config.MinChars = 40
	}
	if config.MinCharsFloor == 0 {
		config.MinCharsFloor = 10
	}

	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		config:   config,
		pipeline: p,
		tmpl:     tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleForm)
	mux.HandleFunc("POST /api/summarize", s.handleAPISummarize)
	mux.HandleFunc("GET /api/recent", s.handleAPIRecent)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.config.Addr).Msg("starting web server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down web server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, pageData{
		Form: formValues{
			Sentences: strconv.Itoa(s.config.Sentences),
			MinChars:  strconv.Itoa(s.config.MinChars),
		},
	})
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	form := formValues{
		URL:       strings.TrimSpace(r.FormValue("url")),
		Sentences: strings.TrimSpace(formValueOr(r, "sentences", strconv.Itoa(s.config.Sentences))),
		MinChars:  strings.TrimSpace(formValueOr(r, "min_chars", strconv.Itoa(s.config.MinChars))),
	}
	data := pageData{Form: form}

	sentences, errS := strconv.Atoi(form.Sentences)
	minChars, errM := strconv.Atoi(form.MinChars)
	switch {
	case errS != nil || errM != nil:
		data.Error = "Sentences and minimum characters must be numeric values."
	case form.URL == "":
		data.Error = "Please enter a valid URL."
	default:
		sentences, minChars = s.clamp(sentences, minChars)
		summary, err := s.pipeline.Run(r.Context(), form.URL, sentences, minChars)
		if err != nil {
			log.Warn().Err(err).Str("url", form.URL).Msg("summarization failed")
			data.Error = err.Error()
			break
		}

		related, err := s.pipeline.Related(r.Context(), summary, relatedLimit)
		if err != nil {
			log.Warn().Err(err).Msg("failed to look up related pages")
		}
		data.Result = &formResult{
			Title:    summary.Title,
			URL:      summary.URL,
			Summary:  summary.Sentences,
			FullText: summary.FullText,
			Related:  related,
		}
	}

	s.render(w, data)
}

func (s *Server) handleAPISummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please enter a valid URL."})
		return
	}

	sentences, minChars := s.withDefaults(req.Sentences, req.MinChars)
	summary, err := s.pipeline.Run(r.Context(), req.URL, sentences, minChars)
	if err != nil {
		log.Warn().Err(err).Str("url", req.URL).Msg("summarization failed")
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, toResponse(summary))
}

func (s *Server) handleAPIRecent(w http.ResponseWriter, r *http.Request) {
	if !s.pipeline.HasStore() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "summary history is not enabled"})
		return
	}

	limit, err := strconv.Atoi(formValueOr(r, "limit", "10"))
	if err != nil || limit < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return
	}

	summaries, err := s.pipeline.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list summaries")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list summaries"})
		return
	}

	resp := make([]summaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		resp = append(resp, toResponse(summary))
	}
	writeJSON(w, http.StatusOK, resp)
}

// withDefaults fills zero values from the config before clamping.
func (s *Server) withDefaults(sentences, minChars int) (int, int) {
	if sentences == 0 {
		sentences = s.config.Sentences
	}
	if minChars == 0 {
		minChars = s.config.MinChars
	}
	return s.clamp(sentences, minChars)
}

func (s *Server) clamp(sentences, minChars int) (int, int) {
	return max(1, sentences), max(s.config.MinCharsFloor, minChars)
}

func (s *Server) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("failed to render template")
	}
}

func formValueOr(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scraper.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, scraper.ErrExtraction), errors.Is(err, processor.ErrInsufficientContent):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func toResponse(summary models.Summary) summaryResponse {
	return summaryResponse{
		ID:        summary.ID,
		URL:       summary.URL,
		Title:     summary.Title,
		Summary:   summary.Sentences,
		FullText:  summary.FullText,
		CreatedAt: summary.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
