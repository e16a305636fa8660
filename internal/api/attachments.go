package api

import (
	"net/http"

	"github.com/fentz26/taskclock/internal/attachment"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/gin-gonic/gin"
)

type uploadRequest struct {
	FileName string `json:"file_name"`
}

func (s *Server) handleRequestUpload(c *gin.Context) {
	if s.deps.Attachments == nil {
		s.respondError(c, errAttachmentsDisabled)
		return
	}
	var req uploadRequest
	if !s.bindJSON(c, &req) {
		return
	}
	up, err := s.deps.Attachments.RequestUpload(c.Request.Context(), attachment.UploadInput{
		TaskID:   c.Param("id"),
		OwnerID:  caller(c).UserID,
		FileName: req.FileName,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, up)
}

func (s *Server) handleListAttachments(c *gin.Context) {
	if s.deps.Attachments == nil {
		s.respondError(c, errAttachmentsDisabled)
		return
	}
	items, err := s.deps.Attachments.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if items == nil {
		items = []models.Attachment{}
	}
	respondSuccess(c, http.StatusOK, gin.H{"attachments": items})
}
