// Package navigation tracks which level of the stage taxonomy is displayed
// and loads the content items once a content type is chosen.
//
// Every transition bumps a generation counter and cancels the fetch of the
// previous generation, so a slow response for an earlier selection can
// never replace the items of the current one.
package navigation

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/logging"
	"github.com/tendant/pehub/pkg/pehub/taxonomy"
)

var (
	// ErrUnknownNode indicates an id that does not exist at the current level
	ErrUnknownNode = errors.New("unknown taxonomy node")

	// ErrInvalidTransition indicates a selection made at the wrong level
	ErrInvalidTransition = errors.New("invalid navigation transition")
)

// Level is the taxonomy level currently displayed.
type Level int

const (
	LevelCategories Level = iota
	LevelSubcategories
	LevelContentTypes
	LevelItems
)

func (l Level) String() string {
	switch l {
	case LevelCategories:
		return "categories"
	case LevelSubcategories:
		return "subcategories"
	case LevelContentTypes:
		return "content_types"
	case LevelItems:
		return "items"
	}
	return "unknown"
}

// Fetcher loads content for a selection and reports content changes.
// pehub.Service satisfies it.
type Fetcher interface {
	BrowseContent(ctx context.Context, sel pehub.Selection) ([]pehub.Resource, error)
	OnContentChanged(fn func(pehub.ContentChange)) (unsubscribe func())
}

// ExitFunc leaves the taxonomy, typically by navigating home.
type ExitFunc func()

// State is a snapshot of the navigator.
type State struct {
	Level         Level  `json:"level"`
	StageID       string `json:"stage_id"`
	CategoryID    string `json:"category_id,omitempty"`
	SubcategoryID string `json:"subcategory_id,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	Loading       bool   `json:"loading"`
}

// Navigator is the navigation state machine. It is safe for concurrent use.
type Navigator struct {
	fetcher Fetcher
	exit    ExitFunc
	logger  *logging.Logger
	stageID string

	mu          sync.Mutex
	level       Level
	stage       taxonomy.Stage
	category    taxonomy.Category
	subcategory taxonomy.Subcategory
	contentType taxonomy.ContentType
	items       []pehub.Resource
	fetchErr    error
	loading     bool
	gen         uint64
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
}

// Option configures a Navigator
type Option func(*Navigator)

// WithStage sets the initial stage, e.g. from a route parameter.
func WithStage(id string) Option {
	return func(n *Navigator) {
		if id != "" {
			n.stageID = id
		}
	}
}

// WithExit sets the function called when going back from the root level.
func WithExit(fn ExitFunc) Option {
	return func(n *Navigator) {
		n.exit = fn
	}
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(n *Navigator) {
		n.logger = l
	}
}

// New creates a navigator positioned at the categories of the initial
// stage. It subscribes to content changes until Close is called.
func New(fetcher Fetcher, opts ...Option) (*Navigator, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	n := &Navigator{
		fetcher: fetcher,
		logger:  logging.Nop(),
		stageID: taxonomy.DefaultStageID,
	}
	for _, opt := range opts {
		opt(n)
	}

	stage, err := taxonomy.GetStage(n.stageID)
	if err != nil {
		return nil, errors.Join(ErrUnknownNode, err)
	}
	n.stage = stage
	n.level = LevelCategories
	n.unsubscribe = fetcher.OnContentChanged(n.contentChanged)
	return n, nil
}

// Close cancels any in-flight fetch and stops observing content changes.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invalidateLocked()
	if n.unsubscribe != nil {
		n.unsubscribe()
		n.unsubscribe = nil
	}
}

// State returns a snapshot of the current position.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := State{Level: n.level, StageID: n.stage.ID, Loading: n.loading}
	if n.level >= LevelSubcategories {
		s.CategoryID = n.category.ID
	}
	if n.level >= LevelContentTypes {
		s.SubcategoryID = n.subcategory.ID
	}
	if n.level == LevelItems {
		s.ContentType = n.contentType.ID
	}
	return s
}

// Stage returns the current stage.
func (n *Navigator) Stage() taxonomy.Stage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stage
}

// Category returns the selected category once past the categories level.
func (n *Navigator) Category() (taxonomy.Category, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.category, n.level >= LevelSubcategories
}

// Subcategory returns the selected subcategory once past the
// subcategories level.
func (n *Navigator) Subcategory() (taxonomy.Subcategory, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.subcategory, n.level >= LevelContentTypes
}

// SelectStage resets to the categories of another stage.
func (n *Navigator) SelectStage(id string) error {
	stage, err := taxonomy.GetStage(id)
	if err != nil {
		return errors.Join(ErrUnknownNode, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.invalidateLocked()
	n.stage = stage
	n.level = LevelCategories
	return nil
}

func (n *Navigator) SelectCategory(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.level != LevelCategories {
		return ErrInvalidTransition
	}
	cat, err := n.stage.Category(id)
	if err != nil {
		return errors.Join(ErrUnknownNode, err)
	}
	n.category = cat
	n.level = LevelSubcategories
	return nil
}

func (n *Navigator) SelectSubcategory(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.level != LevelSubcategories {
		return ErrInvalidTransition
	}
	sub, err := n.category.Subcategory(id)
	if err != nil {
		return errors.Join(ErrUnknownNode, err)
	}
	n.subcategory = sub
	n.level = LevelContentTypes
	return nil
}

// SelectContentType enters the items level and starts loading them in the
// background. It is also accepted at the items level to switch type. The
// fetch runs under a context derived from ctx.
func (n *Navigator) SelectContentType(ctx context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.level != LevelContentTypes && n.level != LevelItems {
		return ErrInvalidTransition
	}
	ct, err := n.subcategory.ContentType(id)
	if err != nil {
		return errors.Join(ErrUnknownNode, err)
	}
	n.contentType = ct
	n.level = LevelItems
	n.fetchLocked(ctx)
	return nil
}

// GoBack pops one level. At the categories level it calls the exit
// function and the state stays where it is.
func (n *Navigator) GoBack() Level {
	n.mu.Lock()
	switch n.level {
	case LevelItems:
		n.invalidateLocked()
		n.level = LevelContentTypes
	case LevelContentTypes:
		n.level = LevelSubcategories
	case LevelSubcategories:
		n.level = LevelCategories
	case LevelCategories:
		exit := n.exit
		n.mu.Unlock()
		if exit != nil {
			exit()
		}
		return LevelCategories
	}
	level := n.level
	n.mu.Unlock()
	return level
}

// Items returns the items displayed for the current selection.
func (n *Navigator) Items() []pehub.Resource {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]pehub.Resource, len(n.items))
	copy(out, n.items)
	return out
}

// Err returns the error of the last completed fetch, if any.
func (n *Navigator) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fetchErr
}

func (n *Navigator) Loading() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loading
}

// Wait blocks until the current fetch has finished or ctx is done.
func (n *Navigator) Wait(ctx context.Context) error {
	n.mu.Lock()
	done := n.done
	n.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RemoveItem drops an item from the displayed set without refetching.
func (n *Navigator) RemoveItem(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removeLocked(id)
}

func (n *Navigator) removeLocked(id uuid.UUID) {
	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i:i], n.items[i+1:]...)
			return
		}
	}
}

func (n *Navigator) selectionLocked() pehub.Selection {
	return pehub.Selection{
		StageID:       n.stage.ID,
		SubcategoryID: n.subcategory.ID,
		ContentType:   n.contentType.ID,
	}
}

// invalidateLocked abandons the current fetch generation.
func (n *Navigator) invalidateLocked() {
	n.gen++
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.items = nil
	n.fetchErr = nil
	n.loading = false
}

func (n *Navigator) fetchLocked(ctx context.Context) {
	n.invalidateLocked()
	gen := n.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	n.cancel = cancel
	n.done = done
	n.loading = true
	sel := n.selectionLocked()

	go func() {
		defer close(done)
		defer cancel()

		items, err := n.fetcher.BrowseContent(fetchCtx, sel)

		n.mu.Lock()
		defer n.mu.Unlock()
		if n.gen != gen {
			n.logger.Debug("discarding superseded fetch",
				"stage_id", sel.StageID, "subcategory_id", sel.SubcategoryID, "content_type", sel.ContentType)
			return
		}
		n.items = items
		n.fetchErr = err
		n.loading = false
		n.cancel = nil
	}()
}

// contentChanged refetches when an item is added under the displayed
// selection and drops removed items locally.
func (n *Navigator) contentChanged(change pehub.ContentChange) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.level != LevelItems {
		return
	}
	sel := n.selectionLocked()
	if !change.Matches(sel, taxonomy.StorageType(sel.ContentType)) {
		return
	}
	switch change.Kind {
	case pehub.ContentRemoved:
		n.removeLocked(change.ContentID)
	case pehub.ContentAdded:
		n.fetchLocked(context.Background())
	}
}
