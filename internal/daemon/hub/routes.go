package hub

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Routes builds the HTTP handler.
func (h *Hub) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"status": "ok"}})
	})

	api := router.Group("/api")
	{
		api.GET("/status", h.getStatus)
		api.GET("/devices", h.getDevices)
	}

	router.GET("/ws", h.handleWebSocket)
	return router
}

func (h *Hub) getStatus(c *gin.Context) {
	if h.status == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Error: "status unavailable"})
		return
	}
	st := h.status()
	st.Clients = h.ClientCount()
	c.JSON(http.StatusOK, Response{Success: true, Data: st})
}

func (h *Hub) getDevices(c *gin.Context) {
	if h.status == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Error: "status unavailable"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: h.status().Devices})
}
