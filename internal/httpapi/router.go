// Package httpapi exposes the matchmaking engine over HTTP.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), AccessLog(h.logger), gin.Recovery())

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/matches", h.Matches)
		v1.GET("/filters", h.Filters)
		v1.GET("/profiles/:id", h.Profile)
	}

	return router
}
