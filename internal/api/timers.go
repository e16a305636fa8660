package api

import (
	"net/http"
	"time"

	"github.com/fentz26/taskclock/internal/models"
	"github.com/fentz26/taskclock/internal/timer"
	"github.com/gin-gonic/gin"
)

type logTimeRequest struct {
	StartedAt time.Time `json:"started_at"`
	Minutes   int       `json:"minutes"`
}

func (s *Server) handleStartTimer(c *gin.Context) {
	id, err := s.deps.Timer.Start(c.Request.Context(), c.Param("id"), caller(c).UserID, s.deps.Clock.Now())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"time_log_id": id})
}

func (s *Server) handleFinishTimer(c *gin.Context) {
	minutes, err := s.deps.Timer.Finish(c.Request.Context(), c.Param("id"), caller(c).UserID, s.deps.Clock.Now())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"duration_minutes": minutes})
}

func (s *Server) handleLogTime(c *gin.Context) {
	var req logTimeRequest
	if !s.bindJSON(c, &req) {
		return
	}
	entry, err := s.deps.Timer.LogTime(c.Request.Context(), timer.LogTimeInput{
		TaskID:    c.Param("id"),
		UserID:    caller(c).UserID,
		StartedAt: req.StartedAt,
		Minutes:   req.Minutes,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"time_log": entry})
}

func (s *Server) handleListTimeLogs(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.deps.Lifecycle.Get(ctx, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	entries, err := s.deps.Timer.List(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if entries == nil {
		entries = []models.TimeLogEntry{}
	}
	respondSuccess(c, http.StatusOK, gin.H{"time_logs": entries})
}
