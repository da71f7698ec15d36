package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/signwiz"
	"github.com/kode4food/signwiz/pkg/api"
)

const healthStatusOK = "healthy"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: signwiz.Name,
		Version: signwiz.Version,
		Status:  healthStatusOK,
	})
}
