// Package taxonomy holds the compiled-in Stage → Category → Subcategory →
// ContentType hierarchy used to browse the content library.
//
// The tree is read-only at runtime. Accessors hand out copies so callers can
// never mutate the shared definition.
package taxonomy

import (
	"errors"
	"fmt"
)

// UI-facing content type identifiers. Every Subcategory exposes exactly
// these four slots.
const (
	Images   = "images"
	Videos   = "videos"
	Files    = "files"
	Talented = "talented"
)

// Storage-facing content type identifiers as written to the content relation.
const (
	StorageImage  = "image"
	StorageVideo  = "video"
	StorageFile   = "file"
	StorageTalent = "talent"
)

// DefaultStageID is the stage shown when no stage is supplied by the caller.
const DefaultStageID = "primary"

var (
	// ErrStageNotFound indicates an unknown stage id
	ErrStageNotFound = errors.New("stage not found")

	// ErrCategoryNotFound indicates an unknown category id within a stage
	ErrCategoryNotFound = errors.New("category not found")

	// ErrSubcategoryNotFound indicates an unknown subcategory id within a category
	ErrSubcategoryNotFound = errors.New("subcategory not found")

	// ErrContentTypeNotFound indicates an unknown content type id within a subcategory
	ErrContentTypeNotFound = errors.New("content type not found")
)

// ContentType is one of the four fixed content slots under a Subcategory.
type ContentType struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	ButtonColor string `json:"button_color"`
}

// Subcategory is a concrete topic that content items are filed under.
type Subcategory struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ImageURL     string        `json:"image_url"`
	Features     []string      `json:"features,omitempty"`
	Color        string        `json:"color"`
	ButtonColor  string        `json:"button_color"`
	ContentTypes []ContentType `json:"content_types"`
}

// Category groups subcategories within a stage.
type Category struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	ImageURL      string        `json:"image_url"`
	Features      []string      `json:"features,omitempty"`
	Color         string        `json:"color"`
	ButtonColor   string        `json:"button_color"`
	Subcategories []Subcategory `json:"subcategories"`
}

// Stage is a top-level educational level.
type Stage struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Icon        string     `json:"icon,omitempty"`
	Color       string     `json:"color,omitempty"`
	ButtonColor string     `json:"button_color,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Features    []string   `json:"features,omitempty"`
	Categories  []Category `json:"categories"`
}

var storageTypes = map[string]string{
	Images:   StorageImage,
	Videos:   StorageVideo,
	Files:    StorageFile,
	Talented: StorageTalent,
}

// StorageType maps a UI content type label to the label stored in the
// content relation. Only the four known labels are translated; anything
// else is returned unchanged.
func StorageType(label string) string {
	if mapped, ok := storageTypes[label]; ok {
		return mapped
	}
	return label
}

// UILabel is the inverse of StorageType for the four storage labels.
func UILabel(storageType string) (string, bool) {
	for ui, st := range storageTypes {
		if st == storageType {
			return ui, true
		}
	}
	return "", false
}

// IsContentTypeLabel reports whether label is one of the four UI labels.
func IsContentTypeLabel(label string) bool {
	_, ok := storageTypes[label]
	return ok
}

// IsStorageType reports whether t is one of the four storage labels.
func IsStorageType(t string) bool {
	_, ok := UILabel(t)
	return ok
}

// Stages returns every stage in display order.
func Stages() []Stage {
	out := make([]Stage, 0, len(stageOrder))
	for _, id := range stageOrder {
		out = append(out, stages[id].clone())
	}
	return out
}

// GetStage returns the stage with the given id.
func GetStage(id string) (Stage, error) {
	s, ok := stages[id]
	if !ok {
		return Stage{}, fmt.Errorf("%w: %q", ErrStageNotFound, id)
	}
	return s.clone(), nil
}

// DefaultStage returns the stage used when none is requested.
func DefaultStage() Stage {
	s, _ := GetStage(DefaultStageID)
	return s
}

// Category returns the category with the given id within the stage.
func (s Stage) Category(id string) (Category, error) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %q in stage %q", ErrCategoryNotFound, id, s.ID)
}

// Subcategory returns the subcategory with the given id within the category.
func (c Category) Subcategory(id string) (Subcategory, error) {
	for _, sc := range c.Subcategories {
		if sc.ID == id {
			return sc, nil
		}
	}
	return Subcategory{}, fmt.Errorf("%w: %q in category %q", ErrSubcategoryNotFound, id, c.ID)
}

// ContentType returns the content type slot with the given UI id.
func (sc Subcategory) ContentType(id string) (ContentType, error) {
	for _, ct := range sc.ContentTypes {
		if ct.ID == id {
			return ct, nil
		}
	}
	return ContentType{}, fmt.Errorf("%w: %q in subcategory %q", ErrContentTypeNotFound, id, sc.ID)
}

// FindSubcategory locates a subcategory anywhere under the stage. Content
// records reference subcategories directly through category_id.
func FindSubcategory(stageID, subcategoryID string) (Category, Subcategory, error) {
	s, err := GetStage(stageID)
	if err != nil {
		return Category{}, Subcategory{}, err
	}
	for _, c := range s.Categories {
		if sc, err := c.Subcategory(subcategoryID); err == nil {
			return c, sc, nil
		}
	}
	return Category{}, Subcategory{}, fmt.Errorf("%w: %q in stage %q", ErrSubcategoryNotFound, subcategoryID, stageID)
}

// Validate checks the structural invariants of the compiled-in tree.
func Validate() error {
	seen := make(map[string]bool)
	for _, id := range stageOrder {
		if seen[id] {
			return fmt.Errorf("duplicate stage id %q", id)
		}
		seen[id] = true
		if err := validateStage(stages[id]); err != nil {
			return err
		}
	}
	return nil
}

func validateStage(s Stage) error {
	cats := make(map[string]bool)
	for _, c := range s.Categories {
		if cats[c.ID] {
			return fmt.Errorf("duplicate category id %q in stage %q", c.ID, s.ID)
		}
		cats[c.ID] = true

		subs := make(map[string]bool)
		for _, sc := range c.Subcategories {
			if subs[sc.ID] {
				return fmt.Errorf("duplicate subcategory id %q in category %q", sc.ID, c.ID)
			}
			subs[sc.ID] = true

			if len(sc.ContentTypes) != len(storageTypes) {
				return fmt.Errorf("subcategory %q has %d content types, want %d", sc.ID, len(sc.ContentTypes), len(storageTypes))
			}
			types := make(map[string]bool)
			for _, ct := range sc.ContentTypes {
				if !IsContentTypeLabel(ct.ID) || types[ct.ID] {
					return fmt.Errorf("subcategory %q has invalid content type slot %q", sc.ID, ct.ID)
				}
				types[ct.ID] = true
			}
		}
	}
	return nil
}

func (s Stage) clone() Stage {
	out := s
	out.Features = append([]string(nil), s.Features...)
	out.Categories = make([]Category, len(s.Categories))
	for i, c := range s.Categories {
		cc := c
		cc.Features = append([]string(nil), c.Features...)
		cc.Subcategories = make([]Subcategory, len(c.Subcategories))
		for j, sc := range c.Subcategories {
			scc := sc
			scc.Features = append([]string(nil), sc.Features...)
			scc.ContentTypes = append([]ContentType(nil), sc.ContentTypes...)
			cc.Subcategories[j] = scc
		}
		out.Categories[i] = cc
	}
	return out
}
