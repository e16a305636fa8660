package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fentz26/taskclock/internal/aggregate"
	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleTopByLoggedTime(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		s.respondError(c, apperr.Invalid(map[string]string{"n": "must be an integer"}))
		return
	}
	totals, err := s.deps.Stats.TopByLoggedTime(c.Request.Context(), n)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": totals})
}

func (s *Server) handlePrevMonthTime(c *gin.Context) {
	ref := s.deps.Clock.Now()
	userID := caller(c).UserID
	total, err := s.deps.Stats.MonthlySum(c.Request.Context(), userID, ref)
	if err != nil {
		s.respondError(c, err)
		return
	}
	from, to := aggregate.PreviousMonth(ref)
	respondSuccess(c, http.StatusOK, gin.H{
		"user_id":       userID,
		"from":          from.Format(time.RFC3339),
		"to":            to.Format(time.RFC3339),
		"total_minutes": total,
	})
}
