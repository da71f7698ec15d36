package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/signwiz/internal/source"
	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

func (s *Server) getWizard(c *gin.Context) {
	c.JSON(http.StatusOK, s.wizard.Snapshot())
}

func (s *Server) setField(c *gin.Context) {
	field := api.Field(c.Param("field"))
	if !field.IsKnown() {
		errorJSON(c, http.StatusNotFound,
			fmt.Errorf("%w: %s", wizard.ErrUnknownField, field),
		)
		return
	}

	var req api.FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if err := s.wizard.SetField(field, req.Value); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, s.wizard.Snapshot())
}

func (s *Server) goTo(c *gin.Context) {
	id, ok := s.stepParam(c)
	if !ok {
		return
	}
	if err := s.wizard.GoTo(id); err != nil {
		errorJSON(c, http.StatusConflict, err)
		return
	}
	c.JSON(http.StatusOK, s.wizard.Snapshot())
}

func (s *Server) selectFile(c *gin.Context) {
	var req api.FileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}

	err := s.wizard.SelectFile(c.Request.Context(), req.Ref)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, s.wizard.Snapshot())
	case errors.Is(err, wizard.ErrNoFileSource):
		errorJSON(c, http.StatusServiceUnavailable, err)
	case errors.Is(err, source.ErrFileNotFound):
		errorJSON(c, http.StatusNotFound, err)
	default:
		errorJSON(c, http.StatusBadRequest, err)
	}
}

func (s *Server) runStep(c *gin.Context) {
	id, ok := s.stepParam(c)
	if !ok {
		return
	}
	if s.wizard.AutoRunning() {
		errorJSON(c, http.StatusConflict, wizard.ErrAutoRunActive)
		return
	}

	s.background(func(ctx context.Context) {
		if err := s.wizard.Run(ctx, id); err != nil {
			slog.Warn("Step run ended with error",
				log.StepID(id),
				log.Error(err))
		}
	})
	c.JSON(http.StatusAccepted, api.RunAcceptedResponse{
		Message: "step run started",
		Step:    id,
	})
}

func (s *Server) stopStep(c *gin.Context) {
	id, ok := s.stepParam(c)
	if !ok {
		return
	}
	if !s.wizard.StopPolling(id) {
		errorJSON(c, http.StatusNotFound,
			fmt.Errorf("%w: %s", ErrNoActivePolling, id),
		)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "polling stopped"})
}

func (s *Server) runAll(c *gin.Context) {
	if !s.Automation() {
		errorJSON(c, http.StatusForbidden, ErrAutomationOff)
		return
	}
	if s.wizard.AutoRunning() {
		errorJSON(c, http.StatusConflict, wizard.ErrAutoRunActive)
		return
	}

	delay := s.wizard.AutoDelay()
	s.background(func(ctx context.Context) {
		if err := s.wizard.RunAll(ctx, delay); err != nil {
			slog.Warn("Run-all ended with error", log.Error(err))
		}
	})
	c.JSON(http.StatusAccepted, api.RunAcceptedResponse{
		Message: "run-all started",
	})
}

func (s *Server) stepParam(c *gin.Context) (api.StepID, bool) {
	id, ok := api.ParseStepID(c.Param("stepID"))
	if !ok {
		errorJSON(c, http.StatusNotFound,
			fmt.Errorf("%w: %s", wizard.ErrUnknownStep, id),
		)
	}
	return id, ok
}
