// Package health exposes the bot's HTTP surface: liveness, identity and
// Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"coffee_bot/internal/logging"
)

const (
	mongoPingTimeout   = 2 * time.Second
	botInfoTimeout     = 5 * time.Second
	readHeaderTimeout  = 2 * time.Second
	healthListenPrefix = ":"

	botName         = "BuyWallSwipeCoffeeBot"
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// MongoChecker defines the subset of MongoDB client behavior required for health.
type MongoChecker interface {
	Ping(ctx context.Context) error
}

// BotInfo resolves the bot's own Telegram account.
type BotInfo interface {
	GetMe(ctx context.Context) (*models.User, error)
}

// Server hosts the HTTP endpoints and owns the underlying HTTP server.
type Server struct {
	server       *http.Server
	logger       *logrus.Entry
	mongoChecker MongoChecker
	botInfo      BotInfo
	started      time.Time
	now          func() time.Time
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Bot       string `json:"bot"`
	Mongo     string `json:"mongo,omitempty"`
}

type botInfoResponse struct {
	Status string       `json:"status"`
	Mode   string       `json:"mode"`
	Bot    *models.User `json:"bot"`
	Uptime float64      `json:"uptime"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer constructs the HTTP server on the provided port. started is the
// process start time reported as uptime by /bot-info.
func NewServer(port int, mongoChecker MongoChecker, botInfo BotInfo, started time.Time, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		logger:       logger,
		mongoChecker: mongoChecker,
		botInfo:      botInfo,
		started:      started,
		now:          time.Now,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf("%s%d", healthListenPrefix, port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/bot-info", s.handleBotInfo)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// ListenAndServe starts the HTTP server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event": "http_listen",
		"addr":  s.server.Addr,
	}).Info("starting http server")

	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.WithField("event", "http_stopped").Info("http server stopped")
			return nil
		}

		return fmt.Errorf("http server listen: %w", err)
	}

	s.logger.WithField("event", "http_stopped").Info("http server stopped")
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("☕ " + botName + " is running!"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "OK",
		Timestamp: s.now().UTC().Format(timestampLayout),
		Bot:       botName + " Active",
	}

	if !s.mongoHealthy(r.Context()) {
		resp.Status = "degraded"
		resp.Mongo = "error"
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) mongoHealthy(ctx context.Context) bool {
	if s.mongoChecker == nil {
		s.logger.WithField("event", "health_mongo_missing").Warn("mongo checker is not configured for health endpoint")
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, mongoPingTimeout)
	defer cancel()

	if err := s.mongoChecker.Ping(pingCtx); err != nil {
		s.logger.WithFields(logging.Fields{
			"event": "health_mongo_error",
		}).WithError(err).Warn("mongo ping failed during health check")
		return false
	}

	return true
}

func (s *Server) handleBotInfo(w http.ResponseWriter, r *http.Request) {
	if s.botInfo == nil {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "bot client is not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), botInfoTimeout)
	defer cancel()

	me, err := s.botInfo.GetMe(ctx)
	if err != nil {
		s.logger.WithField("event", "bot_info_error").WithError(err).Warn("failed to fetch bot info")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, botInfoResponse{
		Status: "Bot is running",
		Mode:   "polling",
		Bot:    me,
		Uptime: s.now().Sub(s.started).Seconds(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithField("event", "http_write_error").WithError(err).Error("failed to encode response")
	}
}
