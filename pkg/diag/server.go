package diag

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/alexa/avs-device-sdk-go/internal/log"
	"github.com/alexa/avs-device-sdk-go/pkg/attachment"
	"github.com/alexa/avs-device-sdk-go/pkg/mediaplayer"
)

// DefaultSnapshotInterval is how often snapshots are broadcast to
// websocket clients.
const DefaultSnapshotInterval = time.Second

// Snapshot is one point-in-time diagnostics report.
type Snapshot struct {
	Time        time.Time               `json:"time"`
	Attachments attachment.ManagerStats `json:"attachments"`
	Player      *mediaplayer.Stats      `json:"player,omitempty"`
	DiagClients int                     `json:"diag_clients"`
}

// Server exposes diagnostics over REST and websocket.
type Server struct {
	app      *fiber.App
	registry *attachment.Manager
	player   *mediaplayer.Player
	interval time.Duration
	logger   *slog.Logger

	hub      *Hub
	stop     chan struct{}
	stopOnce sync.Once
}

// ServerOption configures the diagnostics server.
type ServerOption func(*Server)

// WithPlayer includes player statistics in snapshots.
func WithPlayer(p *mediaplayer.Player) ServerOption {
	return func(s *Server) {
		s.player = p
	}
}

// WithSnapshotInterval sets the websocket broadcast interval.
func WithSnapshotInterval(d time.Duration) ServerOption {
	return func(s *Server) {
		s.interval = d
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a diagnostics server for the given registry.
func NewServer(registry *attachment.Manager, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		interval: DefaultSnapshotInterval,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("diag")
	}
	s.hub = NewHub(s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "avs diagnostics",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/stats", s.handleStats)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/stats", websocket.New(s.handleStatsWS))

	s.app = app
	return s
}

// Start serves on the given port. It blocks until Shutdown.
func (s *Server) Start(port string) error {
	go s.hub.Run()
	go s.snapshotLoop()

	s.logger.Info("diagnostics listening", "port", port)
	return s.app.Listen(":" + port)
}

// StartAsync serves in a background goroutine.
func (s *Server) StartAsync(port string) {
	go func() {
		if err := s.Start(port); err != nil {
			s.logger.Error("diagnostics server failed", "error", err)
		}
	}()
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown stops the server and disconnects websocket clients.
// It is safe to call more than once.
func (s *Server) Shutdown() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.hub.Stop()
	})
	return s.app.Shutdown()
}

// snapshot builds the current diagnostics report.
func (s *Server) snapshot() Snapshot {
	snap := Snapshot{
		Time:        time.Now(),
		Attachments: s.registry.Stats(),
		DiagClients: s.hub.ClientCount(),
	}
	if s.player != nil {
		stats := s.player.Stats()
		snap.Player = &stats
	}
	return snap
}

// snapshotLoop broadcasts snapshots to websocket clients. Ticks with no
// connected clients are skipped.
func (s *Server) snapshotLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.hub.ClientCount() == 0 {
				continue
			}
			if err := s.hub.BroadcastJSON(s.snapshot()); err != nil {
				s.logger.Error("snapshot encode failed", "error", err)
			}
		}
	}
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.snapshot())
}

func (s *Server) handleStatsWS(conn *websocket.Conn) {
	newClient(s.hub, conn).run()
}
