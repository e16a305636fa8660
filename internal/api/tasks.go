package api

import (
	"net/http"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/lifecycle"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/gin-gonic/gin"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type assignRequest struct {
	UserID string `json:"user_id"`
}

type transitionRequest struct {
	Status models.TaskStatus `json:"status"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// bindJSON decodes the body into req, reporting malformed input as a
// validation error.
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.respondError(c, apperr.Invalid(map[string]string{"body": "invalid request structure"}))
		return false
	}
	return true
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.deps.Lifecycle.Create(c.Request.Context(), lifecycle.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   caller(c).UserID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.deps.Lifecycle.List(c.Request.Context(), lifecycle.ListFilter{
		Status:  models.TaskStatus(c.Query("status")),
		OwnerID: c.Query("owner"),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) handleSearchTasks(c *gin.Context) {
	tasks, err := s.deps.Lifecycle.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) handleGetTask(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := s.deps.Lifecycle.Get(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	total, err := s.deps.Stats.TotalDuration(ctx, task.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task, "total_minutes": total})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.deps.Lifecycle.Update(c.Request.Context(), lifecycle.UpdateTaskInput{
		TaskID:      c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.deps.Lifecycle.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleAssignTask(c *gin.Context) {
	var req assignRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.deps.Lifecycle.Assign(c.Request.Context(), lifecycle.AssignInput{TaskID: c.Param("id"), UserID: req.UserID})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	task, err := s.deps.Lifecycle.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleTransitionTask(c *gin.Context) {
	var req transitionRequest
	if !s.bindJSON(c, &req) {
		return
	}
	task, err := s.deps.Lifecycle.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleAddComment(c *gin.Context) {
	var req commentRequest
	if !s.bindJSON(c, &req) {
		return
	}
	comment, err := s.deps.Lifecycle.AddComment(c.Request.Context(), lifecycle.CommentInput{
		TaskID:   c.Param("id"),
		AuthorID: caller(c).UserID,
		Text:     req.Text,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"comment": comment})
}

func (s *Server) handleListComments(c *gin.Context) {
	comments, err := s.deps.Lifecycle.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	respondSuccess(c, http.StatusOK, gin.H{"comments": comments})
}
