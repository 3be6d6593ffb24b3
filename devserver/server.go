// Package devserver is an in-memory implementation of the warehouse REST
// backend. It serves the routes the client uses so the client can be run
// locally and tested end to end.
package devserver

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/auth"
	"github.com/bazrganidrwst/warehouse-client/devserver/loginsession"
	"github.com/bazrganidrwst/warehouse-client/internal/config"
	"github.com/bazrganidrwst/warehouse-client/internal/obs"
	"github.com/bazrganidrwst/warehouse-client/internal/ui"
	"github.com/bazrganidrwst/warehouse-client/token"
	"github.com/bazrganidrwst/warehouse-client/token/refresh"
	refreshrepofake "github.com/bazrganidrwst/warehouse-client/token/refresh/repofake"
	"github.com/bazrganidrwst/warehouse-client/users"
	fakeuserrepo "github.com/bazrganidrwst/warehouse-client/users/repofake"
)

type Server struct {
	env      string
	router   chi.Router
	config   config.DevServerConfig
	users    users.UserRepo
	sessions loginsession.Repo
	tokens   *token.Manager
	refresh  *refresh.Manager
	registry *prometheus.Registry
	metrics  *obs.ServerMetrics
	seed     bool

	maintenance atomic.Bool

	mu            sync.Mutex
	nextID        int64
	notifications map[int64][]notification
	notes         map[int64][]auth.StickyNote
	collections   map[string]*collection
	cashboxes     map[int64]*cashbox
	rates         []exchangeRate
}

type Option func(*Server)

// WithEnv sets the environment name. DEV logs every route at start-up.
func WithEnv(env string) Option {
	return func(s *Server) { s.env = env }
}

// WithMetrics instruments every request and serves /metrics from reg.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithoutSeed starts with the admin account only.
func WithoutSeed() Option {
	return func(s *Server) { s.seed = false }
}

func New(cfg config.DevServerConfig, opts ...Option) (*Server, error) {
	s := &Server{
		config:        cfg,
		users:         fakeuserrepo.NewFakeUserRepo(),
		sessions:      loginsession.NewInMemoryLoginSessionRepo(),
		seed:          true,
		notifications: make(map[int64][]notification),
		notes:         make(map[int64][]auth.StickyNote),
		cashboxes:     make(map[int64]*cashbox),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tokens = token.New(token.NewHMACSigner(cfg.GetJWTSecret()), token.WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()))
	s.refresh = refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), cfg)
	if s.registry != nil {
		s.metrics = obs.NewServerMetrics(s.registry)
	}
	s.collections = newCollections()
	s.maintenance.Store(cfg.GetStartInMaintenance())

	if err := s.initialise(); err != nil {
		return nil, errors.Wrap(err, "[devserver.New] seed fixtures")
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetMaintenance switches maintenance mode. While on, every API route
// answers 503.
func (s *Server) SetMaintenance(on bool) {
	s.maintenance.Store(on)
	log.Info().Bool("maintenance", on).Msg("maintenance mode changed")
}

func (s *Server) InMaintenance() bool {
	return s.maintenance.Load()
}

// ExpireAccessTokens makes every issued access token fail with 401 while
// refresh tokens keep working.
func (s *Server) ExpireAccessTokens() {
	s.tokens.ExpireAll()
	log.Info().Msg("access tokens expired")
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	_ = chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		logRoute(method, route)
		return nil
	})
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := ui.MethodColors[method]
	if !ok {
		color = ui.Gray
	}
	log.Debug().Msgf("[%-19s] %s", color+paddedMethod+ui.ResetColor, path)
}
