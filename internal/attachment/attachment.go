// Package attachment issues upload URLs for files attached to tasks.
package attachment

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/clock"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/google/uuid"
)

const maxFileNameLen = 255

// Presigner issues write URLs. *blob.Store implements it.
type Presigner interface {
	PresignPut(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// Store persists attachment rows. *store.Store implements it.
type Store interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateAttachment(ctx context.Context, a *models.Attachment) error
	ListAttachments(ctx context.Context, taskID string) ([]models.Attachment, error)
}

// UploadInput requests an upload URL for one file.
type UploadInput struct {
	TaskID   string `json:"-"`
	OwnerID  string `json:"-"`
	FileName string `json:"file_name"`
}

func (in *UploadInput) Validate() error {
	in.FileName = strings.TrimSpace(in.FileName)
	fields := map[string]string{}
	switch {
	case in.FileName == "":
		fields["file_name"] = "missed value"
	case len(in.FileName) > maxFileNameLen:
		fields["file_name"] = "too long"
	case strings.ContainsAny(in.FileName, `/\`) || in.FileName == "." || in.FileName == "..":
		fields["file_name"] = "must be a plain file name"
	}
	if in.TaskID == "" {
		fields["task_id"] = "missed value"
	}
	if in.OwnerID == "" {
		fields["owner_id"] = "missed value"
	}
	return apperr.Invalid(fields)
}

// Upload is the recorded attachment and where to PUT its content.
type Upload struct {
	Attachment *models.Attachment `json:"attachment"`
	UploadURL  string             `json:"upload_url"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// Service records attachments and hands out upload URLs.
type Service struct {
	store     Store
	presigner Presigner
	clock     clock.Clock
	expiry    time.Duration
}

// NewService creates a Service. expiry <= 0 means one hour.
func NewService(s Store, p Presigner, c clock.Clock, expiry time.Duration) *Service {
	if c == nil {
		c = clock.System{}
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Service{store: s, presigner: p, clock: c, expiry: expiry}
}

// RequestUpload presigns an upload for in.FileName and records its row.
func (s *Service) RequestUpload(ctx context.Context, in UploadInput) (*Upload, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTask(ctx, in.TaskID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	id := uuid.New().String()
	a := &models.Attachment{
		ID:         id,
		TaskID:     in.TaskID,
		OwnerID:    in.OwnerID,
		FileName:   in.FileName,
		ObjectKey:  ObjectKey(in.TaskID, id, in.FileName),
		UploadedAt: now,
	}

	url, err := s.presigner.PresignPut(ctx, a.ObjectKey, s.expiry)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAttachment(ctx, a); err != nil {
		return nil, err
	}
	return &Upload{Attachment: a, UploadURL: url, ExpiresAt: now.Add(s.expiry)}, nil
}

// List returns the attachments of a task.
func (s *Service) List(ctx context.Context, taskID string) ([]models.Attachment, error) {
	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.store.ListAttachments(ctx, taskID)
}

// ObjectKey builds the object name for an attachment.
func ObjectKey(taskID, attachmentID, fileName string) string {
	return path.Join("tasks", taskID, attachmentID+"-"+fileName)
}
