// Package devserver is a small reference backend for the advisor chat
// client: the chat and task REST endpoints, a WebSocket push hub and
// scheduled proactive updates. It is meant for local development and
// end-to-end tests, not production.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Desarso/advisorchat/stores"
)

// Config configures the dev server. Tags follow the root config loader;
// DefaultConfig holds the defaults.
type Config struct {
	Addr          string        `yaml:"addr" env:"DEVSERVER_ADDR"`
	JWTSecret     string        `yaml:"jwt_secret" env:"DEVSERVER_JWT_SECRET"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"DEVSERVER_TOKEN_TTL"`
	Store         string        `yaml:"store" env:"DEVSERVER_STORE"`
	DSN           string        `yaml:"dsn" env:"DEVSERVER_DSN"`
	ProactiveCron string        `yaml:"proactive_cron" env:"DEVSERVER_PROACTIVE_CRON"`
	// PushReplies also pushes every assistant reply as a chat_message event,
	// so clients see both delivery paths.
	PushReplies bool `yaml:"push_replies" env:"DEVSERVER_PUSH_REPLIES"`
}

func DefaultConfig() Config {
	return Config{
		Addr:      ":3001",
		JWTSecret: "advisorchat-dev-secret",
		TokenTTL:  24 * time.Hour,
		Store:     "sqlite",
		DSN:       "advisorchat.sqlite",
	}
}

// OpenStore opens the store named by cfg.Store.
func (cfg Config) OpenStore() (stores.Store, error) {
	return stores.NewStore(stores.NewStoreConfig(cfg.Store, cfg.DSN))
}

// Option customises a Server.
type Option func(*Server)

func WithResponder(r Responder) Option {
	return func(s *Server) { s.responder = r }
}

func WithProactiveFunc(fn ProactiveFunc) Option {
	return func(s *Server) { s.proactiveFn = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server wires the router, hub, store and scheduler together.
type Server struct {
	cfg         Config
	store       stores.Store
	hub         *Hub
	tokens      *TokenIssuer
	responder   Responder
	proactiveFn ProactiveFunc
	scheduler   *ProactiveScheduler
	logger      zerolog.Logger
	router      *gin.Engine
}

// New builds a server around an open store.
func New(cfg Config, store stores.Store, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		responder: EchoResponder{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if gs, ok := store.(*stores.GormStore); ok {
		gs.WithLogger(s.logger)
	}
	s.logger = s.logger.With().Str("component", "devserver").Logger()
	s.tokens = NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	s.hub = NewHub(s.logger)
	s.hub.OnInbound(s.handleInbound)
	if cfg.ProactiveCron != "" {
		s.scheduler = NewProactiveScheduler(cfg.ProactiveCron, s.hub, s.proactiveFn, s.logger)
	}
	s.router = s.routes()
	return s
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Tokens() *TokenIssuer { return s.tokens }

// Scheduler is nil when no proactive schedule is configured.
func (s *Server) Scheduler() *ProactiveScheduler { return s.scheduler }

// Start runs the hub and scheduler until ctx is cancelled. Run calls it;
// tests that serve Handler themselves call it directly.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			s.scheduler.Stop()
		}()
	}
	return nil
}

// Run serves on cfg.Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger)

	router.GET("/healthz", func(c *gin.Context) {
		if err := s.store.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := router.Group("/", s.requireAuth)
	authed.GET("/ws", func(c *gin.Context) {
		// the upgrader has written the error response on failure
		_ = s.hub.serve(c.Writer, c.Request, userID(c))
	})

	apiGroup := authed.Group("/api")
	apiGroup.GET("/auth/status", s.authStatus)
	apiGroup.POST("/auth/logout", s.logout)
	apiGroup.POST("/chat/message", s.postMessage)
	apiGroup.GET("/chat/history", s.getHistory)
	apiGroup.GET("/chat/conversations", s.getConversations)

	authed.GET("/tasks", s.listTasks)
	authed.POST("/tasks", s.createTask)
	authed.PUT("/tasks/:id", s.updateTask)
	authed.DELETE("/tasks/:id", s.deleteTask)

	authed.GET("/user/settings", s.getSettings)
	authed.PUT("/user/settings", s.putSettings)

	return router
}

func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug().
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Int("status", c.Writer.Status()).
		Dur("took", time.Since(start)).
		Msg("request")
}
