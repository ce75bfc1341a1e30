package control

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/search"
)

// HTTPServer binds Surface's operations onto a plain net/http.ServeMux:
// recovery, CORS, structured request logging, and correlation-ID
// middleware, plus a graceful-shutdown channel handshake.
type HTTPServer struct {
	surface      *Surface
	router       *http.ServeMux
	server       *http.Server
	shutdownChan chan struct{}
	debug        bool
}

// NewHTTPServer builds the server bound to addr. debug controls CORS:
// permissive (Access-Control-Allow-Origin: *) when true, closed (no
// CORS headers at all) when false, matching a single-user local tool
// that should not advertise itself to arbitrary browser origins by
// default.
func NewHTTPServer(surface *Surface, addr string, debug bool) *HTTPServer {
	s := &HTTPServer{surface: surface, debug: debug}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *HTTPServer) SetShutdownChannel(ch chan struct{}) { s.shutdownChan = ch }

func (s *HTTPServer) Start() error {
	s.surface.Logger.Info().Str("address", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.surface.Logger.Info().Msg("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *HTTPServer) Handler() http.Handler { return s.server.Handler }

func (s *HTTPServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents", s.handleAdd)
	mux.HandleFunc("GET /documents", s.handleList)
	mux.HandleFunc("DELETE /documents", s.handleRemove)
	mux.HandleFunc("DELETE /documents/glob", s.handleRemoveByGlob)
	mux.HandleFunc("POST /documents/touch", s.handleUpdateTimestamp)
	mux.HandleFunc("POST /documents/clean-duplicates", s.handleCleanDuplicates)

	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /search/text", s.handleTextSearch)
	mux.HandleFunc("GET /search/vector", s.handleVectorSearch)

	mux.HandleFunc("POST /crawl", s.handleCrawl)
	mux.HandleFunc("GET /crawl/status", s.handleCrawlStatus)

	mux.HandleFunc("GET /db/status", s.handleDBStatus)
	mux.HandleFunc("POST /db/vector-init", s.handleVectorInit)
	mux.HandleFunc("GET /db/vector-status", s.handleVectorStatus)
	mux.HandleFunc("POST /db/vector-embed", s.handleVectorEmbed)
	mux.HandleFunc("GET /db/embed-status", s.handleEmbedStatus)

	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	return mux
}

// --- document handlers ---

func (s *HTTPServer) handleAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.ErrInvalid("invalid JSON body"))
		return
	}
	result, err := s.surface.Add(r.Context(), body.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) handleList(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagingFromQuery(r)
	result, err := s.surface.List(r.Context(), page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	removed, err := s.surface.Remove(r.Context(), url)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, models.ErrNotFound("document not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *HTTPServer) handleRemoveByGlob(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	removed, err := s.surface.RemoveByGlob(r.Context(), pattern)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *HTTPServer) handleUpdateTimestamp(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	updated, err := s.surface.UpdateTimestamp(r.Context(), url)
	if err != nil {
		writeError(w, err)
		return
	}
	if !updated {
		writeError(w, models.ErrNotFound("document not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *HTTPServer) handleCleanDuplicates(w http.ResponseWriter, r *http.Request) {
	result, err := s.surface.CleanDuplicates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- search handlers ---

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagingFromQuery(r)
	q := r.URL.Query()
	p := SearchParams{
		Query:     q.Get("q"),
		Page:      page,
		PerPage:   perPage,
		KeywordWt: floatFromQuery(q, "kw_weight"),
		VectorWt:  floatFromQuery(q, "vw_weight"),
		MinScore:  floatFromQuery(q, "min_score"),
		UseCache:  q.Get("no_cache") == "",
	}
	result, err := s.surface.Search(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleTextSearch(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagingFromQuery(r)
	result, err := s.surface.TextSearch(r.Context(), r.URL.Query().Get("q"), page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleVectorSearch(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagingFromQuery(r)
	maxDistance := floatFromQueryDefault(r.URL.Query(), "max_distance", search.DefaultMaxDistance)
	result, err := s.surface.VectorSearch(r.Context(), r.URL.Query().Get("q"), page, perPage, maxDistance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- crawl/embed handlers ---

func (s *HTTPServer) handleCrawl(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	selector := models.ListSelector{Mode: models.SelectorAll}
	switch mode {
	case "missing":
		selector.Mode = models.SelectorMissing
	case "old":
		selector.Mode = models.SelectorOld
		selector.Days, _ = strconv.Atoi(r.URL.Query().Get("days"))
	case "url":
		selector.Mode = models.SelectorURL
		selector.URL = r.URL.Query().Get("url")
	}
	maxLinks := 50
	if v := r.URL.Query().Get("max_links"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxLinks = n
		}
	}
	if err := s.surface.Crawl(r.Context(), selector, maxLinks); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.surface.CrawlStatus())
}

func (s *HTTPServer) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.surface.CrawlStatus())
}

func (s *HTTPServer) handleVectorEmbed(w http.ResponseWriter, r *http.Request) {
	if err := s.surface.VectorEmbed(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.surface.EmbedStatus())
}

func (s *HTTPServer) handleEmbedStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.surface.EmbedStatus())
}

// --- db handlers ---

func (s *HTTPServer) handleDBStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.surface.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *HTTPServer) handleVectorInit(w http.ResponseWriter, r *http.Request) {
	if err := s.surface.VectorInit(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"initialized": true})
}

func (s *HTTPServer) handleVectorStatus(w http.ResponseWriter, r *http.Request) {
	initialized, err := s.surface.VectorStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"initialized": initialized})
}

// handleShutdown is an endpoint to request a graceful stop; it is
// registered whether or not debug mode is on.
func (s *HTTPServer) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.surface.Logger.Info().Msg("shutdown requested via HTTP endpoint")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("shutting down gracefully...\n"))
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// --- helpers ---

func pagingFromQuery(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	return page, perPage
}

func floatFromQuery(q map[string][]string, key string) float64 {
	return floatFromQueryDefault(q, key, 0)
}

// floatFromQueryDefault parses key from q, falling back to def when the
// param is absent or unparseable. Used for max_distance, whose zero
// value would filter out every dense candidate rather than meaning
// "no limit".
func floatFromQueryDefault(q map[string][]string, key string, def float64) float64 {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return def
	}
	f, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return def
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorStatus maps an ErrKind onto the HTTP status it should produce.
func errorStatus(kind models.ErrKind) int {
	switch kind {
	case models.KindVectorNotInitialized:
		return http.StatusServiceUnavailable
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindAlreadyExists:
		return http.StatusConflict
	case models.KindInvalid:
		return http.StatusBadRequest
	case models.KindBusy:
		return http.StatusConflict
	case models.KindUnconfigured, models.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	writeJSON(w, errorStatus(kind), map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

// --- middleware ---

type contextKey string

const correlationIDKey contextKey = "correlation_id"

func (s *HTTPServer) withMiddleware(handler http.Handler) http.Handler {
	handler = s.recoveryMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.correlationIDMiddleware(handler)
	return handler
}

func (s *HTTPServer) correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Request-ID")
		if correlationID == "" {
			correlationID = r.Header.Get("X-Correlation-ID")
		}
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", correlationID)
		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		durationMs := time.Since(start).Milliseconds()
		correlationID, _ := r.Context().Value(correlationIDKey).(string)

		var logEvent arbor.ILogEvent
		switch {
		case rw.statusCode >= 500:
			logEvent = s.surface.Logger.Error()
		case rw.statusCode >= 400:
			logEvent = s.surface.Logger.Warn()
		default:
			logEvent = s.surface.Logger.Trace()
		}
		logEvent.
			Str("correlation_id", correlationID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Int64("duration_ms", durationMs).
			Int("bytes", rw.bytesWritten).
			Msg("HTTP request")
	})
}

func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.debug {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				correlationID, _ := r.Context().Value(correlationIDKey).(string)
				s.surface.Logger.Error().
					Str("correlation_id", correlationID).
					Str("error", fmt.Sprintf("%v", err)).
					Str("path", r.URL.Path).
					Msg("panic recovered")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("responseWriter does not implement http.Hijacker")
}
