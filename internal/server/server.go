package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gkobilansky/variant-goat/internal/analytics"
	"github.com/gkobilansky/variant-goat/internal/assign"
	"github.com/gkobilansky/variant-goat/internal/binding"
	"github.com/gkobilansky/variant-goat/internal/config"
	"github.com/gkobilansky/variant-goat/internal/events"
	"github.com/gkobilansky/variant-goat/internal/registry"
	"github.com/gkobilansky/variant-goat/internal/storage"
)

type Server struct {
	cfg       *config.Config
	reg       *registry.Registry
	db        *badger.DB
	events    *events.Store
	log       *zap.Logger
	token     string
	tokenFile string
	router    *http.ServeMux
	startTime time.Time
}

func New(cfg *config.Config, reg *registry.Registry, db *badger.DB, ev *events.Store, log *zap.Logger, tokenFile string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &Server{
		cfg:       cfg,
		reg:       reg,
		db:        db,
		events:    ev,
		log:       log,
		token:     newConsoleToken(),
		tokenFile: tokenFile,
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	// Public endpoints
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/v", s.handleResolve)
	s.router.HandleFunc("/b", s.handleBeacon)
	s.router.HandleFunc("/api/tests", s.handleTestsAPI)

	// Debug console (protected), only mounted in debug mode
	if s.cfg.Debug {
		s.router.Handle("/debug/info", s.requireToken(http.HandlerFunc(s.handleDebugInfo)))
		s.router.Handle("/debug/variant", s.requireToken(http.HandlerFunc(s.handleDebugVariant)))
		s.router.Handle("/debug/force", s.requireToken(http.HandlerFunc(s.handleDebugForce)))
		s.router.Handle("/debug/convert", s.requireToken(http.HandlerFunc(s.handleDebugConvert)))
		s.router.Handle("/debug/interact", s.requireToken(http.HandlerFunc(s.handleDebugInteract)))
	}
}

func (s *Server) Start() error {
	return s.StartWithOptions(true)
}

// StartQuiet starts the server without printing startup messages
func (s *Server) StartQuiet() error {
	return s.StartWithOptions(false)
}

func (s *Server) StartWithOptions(printMessages bool) error {
	// Write token to file for the token command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.log.Warn("failed to write token file", zap.Error(err))
		}
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)

	if printMessages {
		fmt.Println()
		fmt.Printf("variant-goat running on http://localhost:%d\n", s.cfg.Port)
		if s.cfg.Debug {
			fmt.Printf("Debug console: http://localhost:%d/debug/info?token=%s\n", s.cfg.Port, s.token)
		}
		fmt.Println()
		fmt.Println("Press Ctrl+C to stop")
	}

	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) StartTime() time.Time {
	return s.startTime
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// session builds the per-visitor binding for one request: badger primary
// tier, cookie mirror, event sink scoped to the visitor.
func (s *Server) session(w http.ResponseWriter, r *http.Request, visitorID string) *binding.Session {
	primary := storage.NewBadgerTier(s.db, visitorID, s.log)
	mirror := storage.NewCookieTier(w, r, s.cfg.CookieTTL())
	store := storage.NewDual(primary, mirror, s.cfg.StoragePrefix, s.cfg.CookieName)

	var sink analytics.Sink
	if s.events != nil {
		sink = s.events.SinkFor(visitorID)
	}
	emitter := analytics.NewEmitter(s.cfg, store, sink, s.log)
	engine := assign.New(s.cfg, s.reg, store, emitter, s.log)

	return binding.New(s.reg, engine, emitter, visitorID)
}

// visitorID pulls the visitor id from the query or cookie, minting and
// setting a fresh one when neither is present.
func (s *Server) visitorID(w http.ResponseWriter, r *http.Request) string {
	if vid := r.URL.Query().Get("vid"); vid != "" {
		return vid
	}
	if c, err := r.Cookie(s.cfg.VisitorCookie); err == nil && c.Value != "" {
		return c.Value
	}

	vid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.VisitorCookie,
		Value:    vid,
		Path:     "/",
		MaxAge:   int(s.cfg.CookieTTL() / time.Second),
		SameSite: http.SameSiteLaxMode,
	})
	return vid
}

// newConsoleToken mints the per-process debug console token. A crypto/rand
// failure falls back to a clock-derived token; the console only exists in
// debug mode, so weak uniqueness beats refusing to start.
func newConsoleToken() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
