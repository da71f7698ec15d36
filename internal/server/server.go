package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/util"
)

type (
	// Server implements the wizard controller API
	Server struct {
		wizard     *wizard.Wizard
		store      Store
		ctx        context.Context
		cancel     context.CancelFunc
		sockets    util.Set[*Client]
		runs       sync.WaitGroup
		mu         sync.Mutex
		automation atomic.Bool
	}

	// Store persists operator settings and exposes run history
	Store interface {
		SaveSettings(ctx context.Context, st *api.Settings) error
		LoadSettings(ctx context.Context) (*api.Settings, error)
		History(ctx context.Context, n int) ([]*api.RunSummary, error)
	}
)

var (
	ErrStoreUnavailable  = errors.New("settings store not configured")
	ErrAutomationOff     = errors.New("automation disabled")
	ErrNoActivePolling   = errors.New("no active polling for step")
	ErrInvalidHistoryArg = errors.New("invalid history limit")
)

// NewServer creates a controller for the wizard. A nil store disables the
// settings and history endpoints
func NewServer(w *wizard.Wizard, st Store, automation bool) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		wizard:  w,
		store:   st,
		ctx:     ctx,
		cancel:  cancel,
		sockets: util.Set[*Client]{},
	}
	s.automation.Store(automation)
	return s
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)

	wiz := router.Group("/wizard")
	{
		wiz.GET("", s.getWizard)
		wiz.GET("/", s.getWizard)
		wiz.PUT("/field/:field", s.setField)
		wiz.POST("/goto/:stepID", s.goTo)
		wiz.POST("/file", s.selectFile)
		wiz.POST("/step/:stepID/run", s.runStep)
		wiz.POST("/step/:stepID/stop", s.stopStep)
		wiz.POST("/run-all", s.runAll)

		// WebSocket
		wiz.GET("/ws", s.handleWebSocket)
	}

	router.GET("/settings", s.getSettings)
	router.PUT("/settings", s.putSettings)
	router.GET("/history", s.getHistory)

	return router
}

// Automation reports whether run-all may be started
func (s *Server) Automation() bool {
	return s.automation.Load()
}

// Close cancels background runs, waits for them to finish and closes all
// WebSocket connections
func (s *Server) Close() {
	s.cancel()
	s.runs.Wait()
	s.CloseWebSockets()
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (s *Server) background(fn func(ctx context.Context)) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		fn(s.ctx)
	}()
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

func errorJSON(c *gin.Context, status int, err error) {
	c.JSON(status, api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}
