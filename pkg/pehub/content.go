package pehub

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/objectkey"
	"github.com/tendant/pehub/pkg/pehub/taxonomy"
)

// UploadContent publishes a content item directly. Only admins may upload;
// everyone else goes through SubmitContentRequest.
func (s *service) UploadContent(ctx context.Context, actor Actor, req UploadContentRequest) (*ContentItem, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	req.Title = SanitizeText(req.Title)
	req.Description = SanitizeText(req.Description)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validatePlacement(req.StageID, req.CategoryID); err != nil {
		return nil, err
	}
	if req.File == nil && req.URL == "" {
		return nil, newValidationError(FieldError{Field: "url", Message: i18n.UploadNeedsSource})
	}

	url := req.URL
	var uploadedKey string
	if req.File != nil {
		key := s.adminKeys.GenerateKey(&objectkey.KeyMetadata{
			FileName:   req.File.Name,
			StageID:    req.StageID,
			CategoryID: req.CategoryID,
			Time:       s.now(),
		})
		var err error
		url, err = s.uploadFile(ctx, key, req.File)
		if err != nil {
			return nil, err
		}
		uploadedKey = key
	}

	item := &ContentItem{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		URL:         url,
		Type:        req.Type,
		StageID:     req.StageID,
		CategoryID:  req.CategoryID,
		CreatedBy:   actor.UserID,
		CreatedAt:   s.timestamp(),
	}
	if err := s.repository.CreateContent(ctx, item); err != nil {
		if uploadedKey != "" {
			s.removeFile(ctx, uploadedKey)
		}
		return nil, &ContentError{ContentID: item.ID, Op: "create", Err: err}
	}

	s.logger.Info("content uploaded", "content_id", item.ID, "type", item.Type, "stage_id", item.StageID, "category_id", item.CategoryID)
	s.publish(ctx, TableContent, EventInsert, item)
	s.contentChanged(ContentAdded, item)
	return item, nil
}

// DeleteContent removes a content item and then, best-effort, the file it
// points to when that file lives in the managed store. A file that cannot
// be removed is kept on the pending cleanup list.
func (s *service) DeleteContent(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}

	item, err := s.repository.GetContent(ctx, id)
	if err != nil {
		return &ContentError{ContentID: id, Op: "delete", Err: err}
	}
	if err := s.repository.DeleteContent(ctx, id); err != nil {
		return &ContentError{ContentID: id, Op: "delete", Err: err}
	}
	s.logger.Info("content deleted", "content_id", id)

	s.publish(ctx, TableContent, EventDelete, item)
	s.contentChanged(ContentRemoved, item)

	if s.blobStore != nil {
		if key, ok := s.blobStore.KeyFromURL(item.URL); ok {
			s.removeFile(ctx, key)
		}
	}
	return nil
}

// PendingCleanups lists object keys whose removal failed.
func (s *service) PendingCleanups() []string {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	keys := make([]string, 0, len(s.cleanups))
	for k := range s.cleanups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RetryCleanups retries removal of every pending key and returns how many
// were cleared.
func (s *service) RetryCleanups(ctx context.Context) (int, error) {
	if s.blobStore == nil {
		return 0, nil
	}
	cleared := 0
	var lastErr error
	for _, key := range s.PendingCleanups() {
		err := s.blobStore.Delete(ctx, key)
		if err != nil && !errors.Is(err, ErrObjectNotFound) {
			lastErr = &StorageError{Key: key, Op: "delete", Err: err}
			continue
		}
		s.cleanupMu.Lock()
		delete(s.cleanups, key)
		s.cleanupMu.Unlock()
		cleared++
	}
	return cleared, lastErr
}

func (s *service) uploadFile(ctx context.Context, key string, file *File) (string, error) {
	if s.blobStore == nil {
		return "", fmt.Errorf("no blob store configured")
	}
	mime := file.ContentType
	if mime == "" {
		mime = "application/octet-stream"
	}
	if err := s.blobStore.Upload(ctx, file.Reader, UploadParams{ObjectKey: key, MimeType: mime}); err != nil {
		s.logger.Error("file upload failed", "key", key, "error", err)
		return "", &StorageError{Key: key, Op: "upload", Err: err}
	}
	return s.blobStore.PublicURL(key), nil
}

func (s *service) removeFile(ctx context.Context, key string) {
	err := s.blobStore.Delete(ctx, key)
	if err == nil || errors.Is(err, ErrObjectNotFound) {
		return
	}
	s.logger.Warn("file removal failed, queued for cleanup", "key", key, "error", err)
	s.cleanupMu.Lock()
	s.cleanups[key] = struct{}{}
	s.cleanupMu.Unlock()
}

// validatePlacement checks that the category id names a subcategory of the
// stage.
func validatePlacement(stageID, categoryID string) error {
	if _, _, err := taxonomy.FindSubcategory(stageID, categoryID); err != nil {
		return newValidationError(FieldError{Field: "category_id", Message: i18n.InvalidInput})
	}
	return nil
}
