// Package api provides the HTTP API server and handlers for the Chapterly application.
package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/chapterlyapp/chapterly-server/internal/auth"
	"github.com/chapterlyapp/chapterly-server/internal/service"
	"github.com/chapterlyapp/chapterly-server/internal/sse"
	"github.com/chapterlyapp/chapterly-server/internal/store"
	"github.com/chapterlyapp/chapterly-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store            store.Store
	synthesisService *service.SynthesisService
	chapterService   *service.ChapterService
	tokens           *auth.TokenService
	sseManager       *sse.Manager
	sseHandler       *sse.Handler
	validator        *validation.Validator
	audioDir         string
	audioPrefix      string
	router           *chi.Mux
	logger           *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// audioDir is the filesystem directory holding published narration;
// audioPrefix is the URL prefix it is served under.
func NewServer(
	st store.Store,
	synthesisService *service.SynthesisService,
	chapterService *service.ChapterService,
	tokens *auth.TokenService,
	sseManager *sse.Manager,
	audioDir, audioPrefix string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:            st,
		synthesisService: synthesisService,
		chapterService:   chapterService,
		tokens:           tokens,
		sseManager:       sseManager,
		sseHandler:       sse.NewHandler(sseManager, logger),
		validator:        validation.New(),
		audioDir:         audioDir,
		audioPrefix:      audioPrefix,
		router:           chi.NewRouter(),
		logger:           logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

const defaultAudioPrefix = "/audio"

// audioRoutePrefix reduces the configured public base URL to the local
// path the published files are routed under.
func audioRoutePrefix(publicBaseURL string) string {
	u, err := url.Parse(publicBaseURL)
	if err != nil {
		return defaultAudioPrefix
	}
	prefix := strings.TrimSuffix(u.Path, "/")
	if prefix == "" || !strings.HasPrefix(prefix, "/") {
		return defaultAudioPrefix
	}
	return prefix
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Published narration artifacts. The configured public URL may be
	// absolute (a CDN fronting this server); the local route serves from
	// its path component only.
	if s.audioDir != "" {
		prefix := audioRoutePrefix(s.audioPrefix)
		fileServer := http.StripPrefix(prefix, http.FileServer(http.Dir(s.audioDir)))
		s.router.Get(prefix+"/*", fileServer.ServeHTTP)
	}

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Change feed (public stream; job events carry no chapter text).
		r.Get("/sync/stream", s.sseHandler.ServeHTTP)

		// Books (require auth).
		r.Route("/books", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateBook)
			r.Get("/{id}/chapters", s.handleListChapters)
			r.Post("/{id}/chapters", s.handleCreateChapter)
		})

		// Chapters (require auth).
		r.Route("/chapters", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/{id}", s.handleGetChapter)
			r.Post("/{id}/audio", s.handleGenerateAudio)
			r.Get("/{id}/audio", s.handleGetAudioStatus)
		})
	})
}
