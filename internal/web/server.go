package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"hpa-bench/internal/storage"
	"hpa-bench/internal/web/handlers"
	"hpa-bench/internal/web/middleware"
)

// Version versão exibida em /health (definida pelo cmd)
var Version = "dev"

// Config configuração do servidor de resultados
type Config struct {
	Port      int
	Token     string
	MergedDir string // diretório com merged_all.csv e merged_locust.csv
	Debug     bool
}

// DefaultConfig retorna configuração padrão
func DefaultConfig() *Config {
	return &Config{
		Port:      8080,
		MergedDir: ".",
	}
}

// Server representa o servidor HTTP
type Server struct {
	config   *Config
	router   *gin.Engine
	store    *storage.Persistence
	registry *prometheus.Registry
	http     *http.Server
}

// NewServer cria uma nova instância do servidor web
func NewServer(config *Config, store *storage.Persistence) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Token == "" {
		return nil, errors.New("an API token is required (set HPA_BENCH_TOKEN)")
	}

	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	// gin.New() ao invés de gin.Default() para controle manual dos middlewares
	router := gin.New()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		config:   config,
		router:   router,
		store:    store,
		registry: registry,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// setupMiddleware configura os middlewares do servidor
func (s *Server) setupMiddleware() {
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))

	s.router.Use(middleware.NewRequestMetrics(s.registry).Handler())
	s.router.Use(gin.Recovery())
}

// setupRoutes configura as rotas da API
func (s *Server) setupRoutes() {
	// Health check (sem auth)
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": Version,
			"storage": s.store.Enabled(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// API v1 (com auth)
	api := s.router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(s.config.Token))

	runsHandler := handlers.NewRunsHandler(s.store)
	api.GET("/runs", runsHandler.List)
	api.GET("/runs/stats", runsHandler.Stats)
	api.GET("/runs/:id", runsHandler.Get)

	mergedHandler := handlers.NewMergedHandler(s.config.MergedDir)
	api.GET("/merged/:name", mergedHandler.Get)
	api.GET("/cache", mergedHandler.CacheStats)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
}

// Handler expõe o router (usado em testes)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry registry das métricas do servidor
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Start inicia o servidor HTTP e bloqueia até o contexto terminar
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Str("api", fmt.Sprintf("http://localhost%s/api/v1", addr)).
		Str("merged_dir", s.config.MergedDir).
		Msg("Results server started")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown encerra gracefully o servidor
func (s *Server) Shutdown() error {
	if s.http == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("Shutting down results server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
