package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MeKo-Tech/bubbleocr/internal/engine"
	"github.com/MeKo-Tech/bubbleocr/internal/metrics"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	engine  engine.Engine
	ocrMu   sync.Mutex // one OCR call at a time per engine
	logger  *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Observer
	http    *httpMetrics
	limiter *RateLimiter
	cache   *resultCache

	corsOrigin     string
	maxUploadBytes int64
	timeout        time.Duration

	processed atomic.Int64
	started   time.Time
}

// Config holds server configuration.
type Config struct {
	Host              string
	Port              int
	CORSOrigin        string
	MaxUploadMB       int64
	TimeoutSec        int
	CacheSize         int
	RequestsPerMinute int
	MaxDataPerDayMB   int64
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry serves /metrics from reg and registers the HTTP metrics on it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.reg = reg }
}

// WithMetrics sets the engine observer used for request-level OCR metrics.
// It must be registered on the same registry passed to WithRegistry.
func WithMetrics(m *metrics.Observer) Option {
	return func(s *Server) { s.metrics = m }
}

// Response types for API endpoints.
type StatusResponse struct {
	Status            string `json:"status"`
	Engine            string `json:"engine"`
	RequestsProcessed int64  `json:"requests_processed"`
	ItemsInCache      int    `json:"items_in_cache"`
	UptimeSec         int64  `json:"uptime_sec"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type EnginesResponse struct {
	Engines []string `json:"engines"`
	Active  string   `json:"active"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new OCR server around eng.
func NewServer(eng engine.Engine, config Config, opts ...Option) (*Server, error) {
	if eng == nil {
		return nil, errors.New("server: engine is nil")
	}
	if config.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("server: invalid max upload size %d", config.MaxUploadMB)
	}
	if config.TimeoutSec <= 0 {
		return nil, fmt.Errorf("server: invalid timeout %d", config.TimeoutSec)
	}

	s := &Server{
		engine:         eng,
		logger:         slog.Default(),
		corsOrigin:     config.CORSOrigin,
		maxUploadBytes: config.MaxUploadMB << 20,
		timeout:        time.Duration(config.TimeoutSec) * time.Second,
		started:        time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.reg == nil {
		s.reg = prometheus.NewRegistry()
		s.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if s.metrics == nil {
		s.metrics = metrics.New(s.reg)
	}
	s.http = newHTTPMetrics(s.reg)

	if config.CacheSize > 0 {
		c, err := newResultCache(config.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.cache = c
	}
	if config.RequestsPerMinute > 0 || config.MaxDataPerDayMB > 0 {
		s.limiter = NewRateLimiter(config.RequestsPerMinute, config.MaxDataPerDayMB<<20)
	}
	return s, nil
}

// Close releases the engine.
func (s *Server) Close() error {
	return engine.Close(s.engine)
}
