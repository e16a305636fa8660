package api

import (
	"time"

	"github.com/fentz26/taskclock/internal/identity"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const identityKey = "taskclock.identity"

// authenticate resolves the caller and mirrors it into the user table.
func (s *Server) authenticate(c *gin.Context) {
	id, err := s.deps.Identity.Identify(c.Request)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if s.deps.Users != nil {
		if _, err := s.deps.Users.UpsertUser(c.Request.Context(), id.UserID, id.Email, s.deps.Clock.Now()); err != nil {
			s.respondError(c, err)
			return
		}
	}
	c.Set(identityKey, id)
	c.Next()
}

func caller(c *gin.Context) identity.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(identity.Identity)
	return id
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if id := caller(c); id.UserID != "" {
			entry = entry.WithField("user_id", id.UserID)
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Info("request")
		default:
			entry.Debug("request")
		}
	}
}
