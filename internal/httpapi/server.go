package httpapi

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/onionwatch/internal/domain"
	apimw "github.com/hamed0406/onionwatch/internal/httpapi/middleware"
	"github.com/hamed0406/onionwatch/internal/repo"
)

type Options struct {
	Refresh            time.Duration // dashboard reload and stream push period
	APIKeys            []string
	RateLimitPerMinute int
	RateLimitBurst     int
}

type Server struct {
	Logger *zap.Logger
	Store  repo.StatusReader
	Opts   Options
	now    func() time.Time
}

func NewServer(l *zap.Logger, store repo.StatusReader, opts Options) *Server {
	if opts.Refresh <= 0 {
		opts.Refresh = 30 * time.Second
	}
	return &Server{Logger: l, Store: store, Opts: opts, now: time.Now}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	health := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
	r.Get("/health", health)
	r.Get("/healthz", health)

	r.Get("/", s.handleDashboard)
	static, _ := fs.Sub(webFS, "web/static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(s.Opts.RateLimitPerMinute, s.Opts.RateLimitBurst))
		r.Use(apimw.RequireKey(s.Opts.APIKeys))

		r.Get("/status", s.handleStatus)
		r.Get("/status/{address}/{port}", s.handleEndpoint)
		r.Get("/stream", s.handleStream)
	})

	return r
}

// statusDocument is the body of /api/status and of every stream message.
type statusDocument struct {
	Summary     domain.Summary          `json:"summary"`
	Endpoints   []domain.EndpointRecord `json:"endpoints"`
	GeneratedAt time.Time               `json:"generated_at"`
}

func (s *Server) document(r *http.Request) (statusDocument, error) {
	recs, err := s.Store.Snapshot(r.Context())
	if err != nil {
		return statusDocument{}, err
	}
	return statusDocument{
		Summary:     domain.Summarize(recs),
		Endpoints:   recs,
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r)
	if err != nil {
		s.Logger.Warn("status_snapshot_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "snapshot error")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleEndpoint(w http.ResponseWriter, r *http.Request) {
	port, err := strconv.ParseUint(chi.URLParam(r, "port"), 10, 16)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid port")
		return
	}
	key := domain.EndpointKey{Address: chi.URLParam(r, "address"), Port: uint16(port)}

	rec, err := s.Store.Get(r.Context(), key)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "endpoint not found")
		return
	}
	if err != nil {
		s.Logger.Warn("status_get_error", zap.String("endpoint", key.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
