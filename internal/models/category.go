package models

import "time"

// Category is a node of the self-referential category tree. Children are not
// stored; they are derived from ParentID on read.
type Category struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	ImageURL    *string   `db:"image_url"`
	Active      bool      `db:"active"`
	ParentID    *int64    `db:"parent_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CategoryView is the category read model with its direct children resolved.
type CategoryView struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Description   *string        `json:"description"`
	ImageURL      *string        `json:"imageUrl"`
	Active        bool           `json:"active"`
	ParentID      *int64         `json:"parentId"`
	SubCategories []CategoryView `json:"subCategories"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// NewCategoryView builds the view of c with the given direct children.
func NewCategoryView(c *Category, children []Category) *CategoryView {
	v := &CategoryView{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		ImageURL:      c.ImageURL,
		Active:        c.Active,
		ParentID:      c.ParentID,
		SubCategories: make([]CategoryView, 0, len(children)),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	for i := range children {
		child := NewCategoryView(&children[i], nil)
		v.SubCategories = append(v.SubCategories, *child)
	}
	return v
}
