package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerRequest is the manual control payload. Both flags may be set in
// one call; stop wins on conflict.
type TriggerRequest struct {
	StartNow bool `json:"startNow"`
	StopNow  bool `json:"stopNow"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	snap, err := s.ops.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  snap,
	})
}

func (s *Server) handleTrigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid trigger payload: " + err.Error(),
		})
		return
	}
	if !req.StartNow && !req.StopNow {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "at least one of startNow or stopNow must be set",
		})
		return
	}

	if req.StopNow {
		if err := s.ops.SetStopRequested(true); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
	}
	// A simultaneous stop makes the start request moot; the stop flag is
	// consumed first by the gate.
	if req.StartNow && !req.StopNow {
		if err := s.ops.SetManualStart(true); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":  true,
		"startNow": req.StartNow && !req.StopNow,
		"stopNow":  req.StopNow,
	})
}
