// Package grid presents fetched resources: tab filtering, favorites, preview
// and download descriptors, and the confirmed delete flow.
package grid

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/taxonomy"
)

// RecentLimit is the number of items shown on the recent tab.
const RecentLimit = 5

// ErrResourceNotFound indicates an id that is not in the grid
var ErrResourceNotFound = errors.New("resource not in grid")

// ErrConfirmationRequired is returned by Delete when no confirmation
// prompt is given.
var ErrConfirmationRequired = errors.New("delete requires a confirmation prompt")

// Tab selects which subset of the items is visible.
type Tab string

const (
	TabAll       Tab = "all"
	TabRecent    Tab = "recent"
	TabFavorites Tab = "favorites"
)

// IsValid reports whether t is a known tab.
func (t Tab) IsValid() bool {
	switch t {
	case TabAll, TabRecent, TabFavorites:
		return true
	}
	return false
}

// PreviewKind tells a viewer how to render a resource.
type PreviewKind string

const (
	PreviewImage    PreviewKind = "image"
	PreviewVideo    PreviewKind = "video"
	PreviewDocument PreviewKind = "document"
	PreviewLink     PreviewKind = "link"
)

// ImageFallbackURL is shown when an image fails to load.
const ImageFallbackURL = "https://placehold.co/600x400?text=Error+Loading+Image"

// Preview describes how to display a resource in place.
type Preview struct {
	Kind        PreviewKind `json:"kind"`
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	MimeType    string      `json:"mime_type,omitempty"`
	FallbackURL string      `json:"fallback_url,omitempty"`
}

// Download describes a file save.
type Download struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

// Deleter removes a content item from the store. pehub.Service satisfies it.
type Deleter interface {
	DeleteContent(ctx context.Context, actor pehub.Actor, id uuid.UUID) error
}

// ConfirmFunc asks the user to confirm deleting r.
type ConfirmFunc func(r pehub.Resource) bool

// Grid holds the resources of one selection. It never fetches; removal is
// reported to the caller through the remove callback.
type Grid struct {
	mu        sync.RWMutex
	items     []pehub.Resource
	favorites map[uuid.UUID]struct{}
	tab       Tab

	admin    bool
	actor    pehub.Actor
	deleter  Deleter
	onRemove func(uuid.UUID)
	onNotice func(i18n.Notice)
	lang     i18n.Lang
}

// Option configures a Grid
type Option func(*Grid)

// WithFavorites seeds the favorites set.
func WithFavorites(ids ...uuid.UUID) Option {
	return func(g *Grid) {
		for _, id := range ids {
			g.favorites[id] = struct{}{}
		}
	}
}

// WithAdmin enables the delete action for actor using d.
func WithAdmin(actor pehub.Actor, d Deleter) Option {
	return func(g *Grid) {
		g.admin = true
		g.actor = actor
		g.deleter = d
	}
}

// WithRemoveFunc sets the callback invoked after a successful delete.
func WithRemoveFunc(fn func(uuid.UUID)) Option {
	return func(g *Grid) {
		g.onRemove = fn
	}
}

// WithNotices sets the callback receiving localized result notices.
func WithNotices(lang i18n.Lang, fn func(i18n.Notice)) Option {
	return func(g *Grid) {
		g.lang = lang
		g.onNotice = fn
	}
}

// New creates a grid over items in the order given, on the all tab.
func New(items []pehub.Resource, opts ...Option) *Grid {
	g := &Grid{
		favorites: make(map[uuid.UUID]struct{}),
		tab:       TabAll,
		lang:      i18n.Default,
	}
	g.items = append([]pehub.Resource(nil), items...)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetItems replaces the items, keeping tab and favorites.
func (g *Grid) SetItems(items []pehub.Resource) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items = append([]pehub.Resource(nil), items...)
}

func (g *Grid) Items() []pehub.Resource {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]pehub.Resource(nil), g.items...)
}

func (g *Grid) SetTab(tab Tab) error {
	if !tab.IsValid() {
		return errors.New("unknown tab " + string(tab))
	}
	g.mu.Lock()
	g.tab = tab
	g.mu.Unlock()
	return nil
}

func (g *Grid) Tab() Tab {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tab
}

// Visible returns the items of the active tab. The recent tab is a prefix
// of the all tab, never a reordering.
func (g *Grid) Visible() []pehub.Resource {
	g.mu.RLock()
	defer g.mu.RUnlock()

	switch g.tab {
	case TabRecent:
		n := len(g.items)
		if n > RecentLimit {
			n = RecentLimit
		}
		return append([]pehub.Resource(nil), g.items[:n]...)
	case TabFavorites:
		out := make([]pehub.Resource, 0)
		for _, item := range g.items {
			if _, ok := g.favorites[item.ID]; ok {
				out = append(out, item)
			}
		}
		return out
	default:
		return append([]pehub.Resource(nil), g.items...)
	}
}

// ToggleFavorite flips id in the favorites set and reports the new state.
func (g *Grid) ToggleFavorite(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.favorites[id]; ok {
		delete(g.favorites, id)
		return false
	}
	g.favorites[id] = struct{}{}
	return true
}

func (g *Grid) IsFavorite(id uuid.UUID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.favorites[id]
	return ok
}

// CanDelete reports whether the delete action is offered.
func (g *Grid) CanDelete() bool {
	return g.admin && g.deleter != nil
}

func (g *Grid) find(id uuid.UUID) (pehub.Resource, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, item := range g.items {
		if item.ID == id {
			return item, true
		}
	}
	return pehub.Resource{}, false
}

// Preview returns the viewer description for a resource.
func (g *Grid) Preview(id uuid.UUID) (Preview, error) {
	r, ok := g.find(id)
	if !ok {
		return Preview{}, ErrResourceNotFound
	}
	return PreviewOf(r), nil
}

// PreviewOf maps a resource's storage type to a viewer.
func PreviewOf(r pehub.Resource) Preview {
	p := Preview{URL: r.DownloadURL, Title: r.Title}
	switch r.Type {
	case taxonomy.StorageImage:
		p.Kind = PreviewImage
		p.FallbackURL = ImageFallbackURL
	case taxonomy.StorageVideo, taxonomy.StorageTalent:
		p.Kind = PreviewVideo
	case taxonomy.StorageFile:
		p.Kind = PreviewDocument
		p.MimeType = "application/pdf"
	default:
		p.Kind = PreviewLink
	}
	return p
}

// Download returns the save descriptor for a resource.
func (g *Grid) Download(id uuid.UUID) (Download, error) {
	r, ok := g.find(id)
	if !ok {
		return Download{}, ErrResourceNotFound
	}
	return DownloadOf(r), nil
}

// DownloadOf names the saved file after the resource title, keeping the
// extension of the stored URL.
func DownloadOf(r pehub.Resource) Download {
	var base string
	if u, err := url.Parse(r.DownloadURL); err == nil {
		base = path.Base(u.Path)
	}
	ext := path.Ext(base)

	name := strings.TrimSpace(r.Title)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	switch {
	case name == "" && base != "" && base != "/" && base != ".":
		name = base
	case name == "":
		name = r.ID.String()
	case ext != "" && !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)):
		name += ext
	}
	return Download{URL: r.DownloadURL, FileName: name}
}

// Delete removes a resource after confirmation. It reports whether the
// item was deleted. A declined confirmation changes nothing, and a nil
// confirm is rejected with ErrConfirmationRequired.
func (g *Grid) Delete(ctx context.Context, id uuid.UUID, confirm ConfirmFunc) (bool, error) {
	if !g.CanDelete() {
		return false, pehub.ErrForbidden
	}
	r, ok := g.find(id)
	if !ok {
		return false, ErrResourceNotFound
	}
	if confirm == nil {
		return false, ErrConfirmationRequired
	}
	if !confirm(r) {
		return false, nil
	}

	if err := g.deleter.DeleteContent(ctx, g.actor, id); err != nil {
		g.notify(i18n.Failure(g.lang, pehub.NoticeKey(err, i18n.DeleteError)))
		return false, err
	}

	g.mu.Lock()
	for i, item := range g.items {
		if item.ID == id {
			g.items = append(g.items[:i:i], g.items[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	if g.onRemove != nil {
		g.onRemove(id)
	}
	g.notify(i18n.Notice{
		Title:       i18n.T(g.lang, i18n.DeleteSuccessTitle),
		Description: i18n.T(g.lang, i18n.DeleteSuccess),
	})
	return true, nil
}

func (g *Grid) notify(n i18n.Notice) {
	if g.onNotice != nil {
		g.onNotice(n)
	}
}
