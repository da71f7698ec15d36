package mock

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/util"
)

type (
	// Server implements the simulated vendor API. Documents advance one
	// event stage per events call
	Server struct {
		tags      api.TerminalTags
		tokens    util.Set[string]
		blobs     map[string][]byte
		documents map[string]*document
		mu        sync.Mutex
	}

	document struct {
		created time.Time
		id      string
		stages  []string
		shown   int
	}
)

const (
	TokenPath          = "identity/token"
	UploadURLPath      = "storage/upload-url"
	UploadStatusPath   = "storage/status"
	BlobPath           = "blob"
	PreparePath        = "contract/prepare"
	PrepareAndSendPath = "contract/prepare-send"
	RolloutPath        = "contract/rollout"
	EventsPath         = "contract/events"

	// FailMarker in a contract title makes its preparation fail
	FailMarker = "fail"

	StatusUploaded = "Uploaded"
	StatusPending  = "Pending"

	stageCreated    = "created"
	stageProcessing = "processing"
	stageRollout    = "rollout_started"
)

// Endpoints returns the profile that targets a mock server at baseURL
func Endpoints(baseURL string) *api.Endpoints {
	return &api.Endpoints{
		BaseURL:                   baseURL,
		TokenAPI:                  TokenPath,
		GetUploadURLAPI:           UploadURLPath,
		PollUploadStatusAPI:       UploadStatusPath,
		PrepareContractAPI:        PreparePath,
		PrepareAndSendContractAPI: PrepareAndSendPath,
		SendContractAPI:           RolloutPath,
		GetEventsAPI:              EventsPath,
	}
}

// NewServer creates a mock vendor API whose event stages end in the given
// terminal tags
func NewServer(tags api.TerminalTags) *Server {
	return &Server{
		tags:      tags,
		tokens:    util.Set[string]{},
		blobs:     map[string][]byte{},
		documents: map[string]*document{},
	}
}

// SetupRoutes configures and returns the HTTP router for the mock API
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default().With(slog.String("component", "mock"))
		}),
	))

	router.POST(route(TokenPath), s.handleToken)
	router.PUT(route(BlobPath)+"/:itemID", s.handleBlobPut)

	authed := router.Group("/", s.requireToken)
	{
		authed.POST(route(UploadURLPath), s.handleUploadURL)
		authed.POST(route(UploadStatusPath), s.handleUploadStatus)
		authed.POST(route(PreparePath), s.handlePrepare(false))
		authed.POST(route(PrepareAndSendPath), s.handlePrepare(true))
		authed.POST(route(RolloutPath), s.handleRollout)
		authed.POST(route(EventsPath), s.handleEvents)
	}

	return router
}

// Blob returns the bytes uploaded for a storage item
func (s *Server) Blob(itemID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[itemID]
	return data, ok
}

// DocumentCount returns the number of contracts prepared so far
func (s *Server) DocumentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents)
}

func (s *Server) prepareStages(title string, send bool) []string {
	if strings.Contains(strings.ToLower(title), FailMarker) {
		return []string{
			stageCreated, stageProcessing, s.tags.PreparationFailed,
		}
	}
	res := []string{stageCreated, stageProcessing, s.tags.PreparationSuccess}
	if send {
		res = append(res, s.rolloutStages()...)
	}
	return res
}

func (s *Server) rolloutStages() []string {
	return []string{stageRollout, s.tags.RolloutSuccess}
}

// advance reveals the next stage and returns every stage shown so far
func (d *document) advance() []string {
	if d.shown < len(d.stages) {
		d.shown++
	}
	return d.stages[:d.shown]
}

func route(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, api.ErrorResponse{Error: msg, Status: status})
}

func rejectJSON(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{
		"IsSuccess": false,
		"Errors":    []string{msg},
	})
}
