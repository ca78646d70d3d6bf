package services

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/storage"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
)

const maxFileNameLength = 100

// Upload is a file submitted for attachment.
type Upload struct {
	Name     string
	MimeType string
	Content  io.Reader
}

func loadFile(ctx context.Context, db *gorm.DB, id uint) (*models.File, error) {
	return repository.New[models.File](db, "file").Get(ctx, id, "Event.User")
}

func (s *Service) ListFiles(ctx context.Context, actor *models.User, id uint) ([]models.File, error) {
	var list []models.File
	err := s.read(ctx, "file.list", func(db *gorm.DB) error {
		issue, err := s.viewable(ctx, db, actor, id)
		if err != nil {
			return err
		}
		err = db.WithContext(ctx).Preload("Event.User").
			Where("issue_id = ? AND removed_at IS NULL", issue.ID).
			Order("id").
			Find(&list).Error
		return apperrors.Wrap("file", err)
	})
	return list, err
}

// AttachFile stores the upload and records it on the issue. Uploads larger
// than the configured limit are rejected.
func (s *Service) AttachFile(ctx context.Context, actor *models.User, id uint, upload Upload) (*models.File, error) {
	if s.files == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "file storage is not configured")
	}

	name := filepath.Base(strings.TrimSpace(upload.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, apperrors.Validation("file name is required")
	}
	if len(name) > maxFileNameLength {
		return nil, apperrors.Validation("file name must be at most %d characters", maxFileNameLength)
	}
	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	uid := storage.NewUID()
	var (
		file      *models.File
		published []events.IssueEvent
	)
	err := s.transact(ctx, "file.attach", func(tx *gorm.DB) error {
		issue, err := s.viewable(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !s.issueVoter.CanAttachFile(actor, issue) {
			return deny("you are not allowed to attach files to this issue")
		}

		size, err := s.files.Save(uid, upload.Content, s.maxUploadSize)
		if errors.Is(err, storage.ErrTooLarge) {
			return apperrors.Newf(apperrors.CodeTooLarge, "file exceeds %d bytes", s.maxUploadSize)
		}
		if err != nil {
			return err
		}

		line := s.timeline(ctx, tx, actor)
		file = &models.File{IssueID: issue.ID, FileName: name, FileSize: size, MimeType: mimeType, UID: uid}

		// The event refers to the file, which needs the event first.
		event, err := line.add(issue.ID, types.EventFileAttached, nil)
		if err != nil {
			return err
		}
		file.EventID = event.ID
		if err := repository.New[models.File](tx, "file").Create(ctx, file); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(event).Update("parameter", file.ID).Error; err != nil {
			return apperrors.Wrap("event", err)
		}
		if err := line.touch(issue.ID); err != nil {
			return err
		}
		event.Parameter = uintPtr(file.ID)
		event.User = *actor
		file.Event = *event

		published, _, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		if removeErr := s.files.Remove(uid); removeErr != nil {
			s.log.Warn().Err(removeErr).Str("uid", uid).Msg("failed to clean up upload")
		}
		return nil, err
	}
	s.publish(published...)
	return file, nil
}

// DownloadFile opens an attached file. The caller must close the reader.
func (s *Service) DownloadFile(ctx context.Context, actor *models.User, fileID uint) (*models.File, io.ReadCloser, error) {
	if s.files == nil {
		return nil, nil, apperrors.New(apperrors.CodeUnknown, "file storage is not configured")
	}

	var file *models.File
	err := s.read(ctx, "file.download", func(db *gorm.DB) error {
		var err error
		if file, err = loadFile(ctx, db, fileID); err != nil {
			return err
		}
		if file.IsRemoved() {
			return apperrors.NotFound("file")
		}
		_, err = s.viewable(ctx, db, actor, file.IssueID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	r, err := s.files.Open(file.UID)
	if err != nil {
		return nil, nil, apperrors.Wrap("file", err)
	}
	return file, r, nil
}

// DeleteFile marks the file removed. Its content stays on disk until the
// purge job collects it.
func (s *Service) DeleteFile(ctx context.Context, actor *models.User, fileID uint) error {
	var published []events.IssueEvent
	err := s.transact(ctx, "file.delete", func(tx *gorm.DB) error {
		file, err := loadFile(ctx, tx, fileID)
		if err != nil {
			return err
		}
		if file.IsRemoved() {
			return apperrors.NotFound("file")
		}
		issue, err := s.viewable(ctx, tx, actor, file.IssueID)
		if err != nil {
			return err
		}
		if !s.issueVoter.CanDeleteFile(actor, issue) {
			return deny("you are not allowed to delete files of this issue")
		}

		line := s.timeline(ctx, tx, actor)
		err = tx.WithContext(ctx).Model(&models.File{}).Where("id = ?", file.ID).Update("removed_at", line.at).Error
		if err != nil {
			return apperrors.Wrap("file", err)
		}
		if _, err := line.add(issue.ID, types.EventFileDeleted, uintPtr(file.ID)); err != nil {
			return err
		}
		if err := line.touch(issue.ID); err != nil {
			return err
		}

		published, _, err = line.notifications(issue.ID)
		return err
	})
	if err != nil {
		return err
	}
	s.publish(published...)
	return nil
}
