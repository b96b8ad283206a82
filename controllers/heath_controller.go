package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/vocasync/store"
	"github.com/vnkhanh/vocasync/ws"
)

const (
	ServiceName    = "vocasync"
	ServiceVersion = "1.0.0"
)

type HealthController struct {
	store store.Store
	hub   *ws.Hub
}

func NewHealthController(st store.Store, hub *ws.Hub) *HealthController {
	return &HealthController{store: st, hub: hub}
}

func (hc *HealthController) HealthCheck(c *gin.Context) {
	response := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   ServiceName,
		"version":   ServiceVersion,
		"store":     "ok",
		"websocket": gin.H{"enabled": false},
	}
	if hc.hub != nil {
		response["websocket"] = gin.H{"enabled": true, "stats": hc.hub.Stats()}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := hc.store.Ping(ctx); err != nil {
		response["store"] = "error: " + err.Error()
		response["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}
