package pehub

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/taxonomy"
)

// BrowseContent returns the content items filed under the selection,
// newest first. On a store failure it returns an empty result together
// with a TransientError and reports a localized notice to the failure
// notifier. It does not retry.
func (s *service) BrowseContent(ctx context.Context, sel Selection) ([]Resource, error) {
	if strings.TrimSpace(sel.StageID) == "" || strings.TrimSpace(sel.SubcategoryID) == "" {
		return []Resource{}, ErrInvalidSelection
	}
	if !taxonomy.IsContentTypeLabel(sel.ContentType) {
		return []Resource{}, ErrInvalidSelection
	}

	items, err := s.repository.ListContent(ctx, ContentFilter{
		Type:       taxonomy.StorageType(sel.ContentType),
		StageID:    sel.StageID,
		CategoryID: sel.SubcategoryID,
	})
	if err != nil {
		s.logger.Error("failed to fetch content",
			"stage_id", sel.StageID, "category_id", sel.SubcategoryID, "type", sel.ContentType, "error", err)
		if s.onFailure != nil {
			s.onFailure(i18n.Notice{
				Title:       s.t(i18n.FetchErrorTitle),
				Description: s.t(i18n.FetchError),
				Destructive: true,
			})
		}
		return []Resource{}, &TransientError{Op: "browse content", Notice: i18n.FetchError, Err: err}
	}

	resources := make([]Resource, 0, len(items))
	for _, item := range items {
		resources = append(resources, ToResource(item))
	}
	return resources, nil
}

// ToResource normalizes a content item for presentation. Thumbnail and
// download both point at the stored URL.
func ToResource(item *ContentItem) Resource {
	return Resource{
		ID:           item.ID,
		Title:        item.Title,
		Description:  item.Description,
		Type:         item.Type,
		ThumbnailURL: item.URL,
		DownloadURL:  item.URL,
	}
}

func (s *service) GetContent(ctx context.Context, id uuid.UUID) (*ContentItem, error) {
	item, err := s.repository.GetContent(ctx, id)
	if err != nil {
		return nil, &ContentError{ContentID: id, Op: "get", Err: err}
	}
	return item, nil
}

// OnContentChanged registers fn to be called after content is added or
// removed. The returned function removes the registration.
func (s *service) OnContentChanged(fn func(ContentChange)) func() {
	s.observersMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.observersMu.Unlock()

	return func() {
		s.observersMu.Lock()
		delete(s.observers, id)
		s.observersMu.Unlock()
	}
}

func (s *service) contentChanged(kind ContentChangeKind, item *ContentItem) {
	change := ContentChange{
		Kind:        kind,
		ContentID:   item.ID,
		StageID:     item.StageID,
		CategoryID:  item.CategoryID,
		StorageType: item.Type,
	}

	s.observersMu.RLock()
	fns := make([]func(ContentChange), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.observersMu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}
