// Package model declares the catalog records. Each struct maps one table;
// column names are noted next to the fields and constraints live in the
// validate tags.
package model

// Category groups movies, e.g. "Films" or "Cartoons". Movies keep their
// row when a category is deleted; their category_id becomes NULL.
type Category struct {
	ID          uint64 `json:"id"`                                   // categories.id
	Name        string `json:"name" validate:"required,max=50"`      // categories.name
	Description string `json:"description" validate:"max=255"`       // categories.description
	URL         string `json:"url" validate:"required,max=160,slug"` // categories.url (unique)
}

func (c Category) String() string { return c.Name }
