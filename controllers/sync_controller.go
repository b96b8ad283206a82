package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/vnkhanh/vocasync/middleware"
	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/services"
)

type SyncController struct {
	sync *services.SyncService
}

func NewSyncController(sync *services.SyncService) *SyncController {
	return &SyncController{sync: sync}
}

// Push POST /sync/push
func (sc *SyncController) Push(c *gin.Context) {
	var req models.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			respondError(c, services.PushValidationError(fields), "Push sync failed")
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	res, err := sc.sync.Push(c.Request.Context(), middleware.Subject(c), req)
	if err != nil {
		respondError(c, err, "Push sync failed")
		return
	}

	c.JSON(http.StatusOK, models.PushResponse{
		Success:   true,
		Synced:    res.Synced,
		Timestamp: res.Timestamp,
	})
}

// Pull GET /sync/pull?lastSyncedAt=N
func (sc *SyncController) Pull(c *gin.Context) {
	var cursor int64
	if raw := c.Query("lastSyncedAt"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid lastSyncedAt", Message: "must be a non-negative integer"})
			return
		}
		cursor = v
	}

	res, err := sc.sync.Pull(c.Request.Context(), middleware.Subject(c), cursor)
	if err != nil {
		respondError(c, err, "Pull sync failed")
		return
	}

	c.JSON(http.StatusOK, models.PullResponse{
		Success:      true,
		Data:         models.PullData{Words: res.Words, Reviews: res.Reviews},
		Timestamp:    res.Timestamp,
		TotalWords:   len(res.Words),
		TotalReviews: len(res.Reviews),
	})
}
