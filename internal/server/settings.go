package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/signwiz/internal/store"
	"github.com/kode4food/signwiz/pkg/api"
)

const defaultHistoryLimit = 20

func (s *Server) getSettings(c *gin.Context) {
	if s.store == nil {
		errorJSON(c, http.StatusServiceUnavailable, ErrStoreUnavailable)
		return
	}

	st, err := s.store.LoadSettings(c.Request.Context())
	switch {
	case errors.Is(err, store.ErrSettingsNotFound):
		errorJSON(c, http.StatusNotFound, err)
	case err != nil:
		errorJSON(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, st)
	}
}

func (s *Server) putSettings(c *gin.Context) {
	if s.store == nil {
		errorJSON(c, http.StatusServiceUnavailable, ErrStoreUnavailable)
		return
	}

	var st api.Settings
	if err := c.ShouldBindJSON(&st); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if err := s.wizard.ApplySettings(&st); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}

	res := s.wizard.Settings()
	res.EnableAutomation = st.EnableAutomation
	if err := s.store.SaveSettings(c.Request.Context(), res); err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	s.automation.Store(res.EnableAutomation)
	c.JSON(http.StatusOK, res)
}

func (s *Server) getHistory(c *gin.Context) {
	if s.store == nil {
		errorJSON(c, http.StatusServiceUnavailable, ErrStoreUnavailable)
		return
	}

	limit := defaultHistoryLimit
	if arg := c.Query("limit"); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			errorJSON(c, http.StatusBadRequest,
				fmt.Errorf("%w: %s", ErrInvalidHistoryArg, arg),
			)
			return
		}
		limit = n
	}

	runs, err := s.store.History(c.Request.Context(), limit)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, api.HistoryResponse{
		Runs:  runs,
		Count: len(runs),
	})
}
