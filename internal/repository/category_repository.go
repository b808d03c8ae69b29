package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// CategoryRepo encapsulates all queries on categories.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo constructs a CategoryRepo with the provided DB handle.
func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

const categoryColumns = "id, name, description, url"

func scanCategory(s rowScanner) (*model.Category, error) {
	var c model.Category
	if err := s.Scan(&c.ID, &c.Name, &c.Description, &c.URL); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create validates and inserts c, filling in its ID. A taken url yields
// ErrDuplicate.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	if err := model.Validate(c); err != nil {
		return err
	}
	const q = "INSERT INTO categories (name, description, url) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Description, c.URL)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a category by primary key.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	const q = "SELECT " + categoryColumns + " FROM categories WHERE id = ?"
	c, err := scanCategory(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return c, nil
}

// GetByURL fetches a category by its slug.
func (r *CategoryRepo) GetByURL(ctx context.Context, url string) (*model.Category, error) {
	const q = "SELECT " + categoryColumns + " FROM categories WHERE url = ?"
	c, err := scanCategory(r.db.QueryRowContext(ctx, q, url))
	if err != nil {
		return nil, notFound(err, "category", url)
	}
	return c, nil
}

// List returns every category ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	const q = "SELECT " + categoryColumns + " FROM categories ORDER BY name, id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update overwrites every column of c.
func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
	if err := model.Validate(c); err != nil {
		return err
	}
	const q = "UPDATE categories SET name = ?, description = ?, url = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Description, c.URL, c.ID)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "category", c.ID)
}

// Delete removes a category. Movies in it stay and lose their category.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "category", id)
}
