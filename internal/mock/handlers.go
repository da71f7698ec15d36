package mock

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

const bearerPrefix = "bearer "

func (s *Server) handleToken(c *gin.Context) {
	if c.PostForm("grant_type") != "client_credentials" {
		errorJSON(c, http.StatusBadRequest, "unsupported_grant_type")
		return
	}
	if c.PostForm("client_id") == "" || c.PostForm("client_secret") == "" {
		errorJSON(c, http.StatusUnauthorized, "invalid_client")
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens.Add(token)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *Server) requireToken(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if len(auth) <= len(bearerPrefix) ||
		!strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		errorJSON(c, http.StatusUnauthorized, "missing bearer token")
		c.Abort()
		return
	}

	s.mu.Lock()
	ok := s.tokens.Contains(auth[len(bearerPrefix):])
	s.mu.Unlock()
	if !ok {
		errorJSON(c, http.StatusUnauthorized, "unknown token")
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) handleUploadURL(c *gin.Context) {
	var req api.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.ItemID == "" {
		req.ItemID = uuid.NewString()
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	c.JSON(http.StatusOK, gin.H{
		"IsSuccess": true,
		"ItemId":    req.ItemID,
		"UploadUrl": fmt.Sprintf("%s://%s%s/%s",
			scheme, c.Request.Host, route(BlobPath), req.ItemID,
		),
	})
}

func (s *Server) handleBlobPut(c *gin.Context) {
	itemID := c.Param("itemID")
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.blobs[itemID] = data
	s.mu.Unlock()

	slog.Debug("Blob stored",
		log.FileID(itemID),
		slog.Int("size", len(data)))
	c.Status(http.StatusOK)
}

func (s *Server) handleUploadStatus(c *gin.Context) {
	var req api.UploadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.FileID == "" {
		errorJSON(c, http.StatusBadRequest, "fileId required")
		return
	}

	status := StatusPending
	if _, ok := s.Blob(req.FileID); ok {
		status = StatusUploaded
	}
	c.JSON(http.StatusOK, gin.H{
		"IsSuccess": true,
		"ItemId":    req.FileID,
		"Status":    status,
	})
}

func (s *Server) handlePrepare(send bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req api.PrepareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Signatories) == 0 {
			rejectJSON(c, "at least one signatory is required")
			return
		}
		if _, ok := s.Blob(req.FileID); !ok {
			rejectJSON(c, "unknown file "+req.FileID)
			return
		}

		doc := &document{
			id:      uuid.NewString(),
			created: time.Now(),
			stages:  s.prepareStages(req.Title, send),
		}
		s.mu.Lock()
		s.documents[doc.id] = doc
		s.mu.Unlock()

		slog.Info("Contract prepared",
			log.DocumentID(doc.id),
			slog.String("title", req.Title),
			slog.Bool("send", send))
		c.JSON(http.StatusOK, gin.H{
			"IsSuccess": true,
			"Result":    gin.H{"DocumentId": doc.id},
		})
	}
}

func (s *Server) handleRollout(c *gin.Context) {
	var req api.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Stamps) == 0 {
		rejectJSON(c, "at least one stamp is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[req.DocumentID]
	if !ok {
		errorJSON(c, http.StatusNotFound, "unknown document")
		return
	}
	doc.stages = append(doc.stages, s.rolloutStages()...)
	c.JSON(http.StatusOK, gin.H{"IsSuccess": true})
}

func (s *Server) handleEvents(c *gin.Context) {
	var req api.EventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	doc, ok := s.documents[req.DocumentID]
	var stages []string
	if ok {
		stages = doc.advance()
	}
	s.mu.Unlock()
	if !ok {
		errorJSON(c, http.StatusNotFound, "unknown document")
		return
	}

	events := make([]gin.H, 0, len(stages))
	for i, stage := range stages {
		at := doc.created.Add(time.Duration(i) * time.Second)
		events = append(events, gin.H{
			"DocumentId": doc.id,
			"Status":     stage,
			"CreatedAt":  at.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"IsSuccess": true,
		"Result":    events,
	})
}
