package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// RatingStarRepo encapsulates queries on the rating star lookup table.
type RatingStarRepo struct {
	db *sql.DB
}

// NewRatingStarRepo constructs a RatingStarRepo with the provided DB handle.
func NewRatingStarRepo(db *sql.DB) *RatingStarRepo {
	return &RatingStarRepo{db: db}
}

// Create inserts a star value. A value that already has a star yields
// ErrDuplicate.
func (r *RatingStarRepo) Create(ctx context.Context, s *model.RatingStar) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO rating_stars (value) VALUES (?)", s.Value)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches a star by primary key.
func (r *RatingStarRepo) GetByID(ctx context.Context, id uint64) (*model.RatingStar, error) {
	var s model.RatingStar
	err := r.db.QueryRowContext(ctx, "SELECT id, value FROM rating_stars WHERE id = ?", id).Scan(&s.ID, &s.Value)
	if err != nil {
		return nil, notFound(err, "rating star", id)
	}
	return &s, nil
}

// List returns all stars from lowest to highest value.
func (r *RatingStarRepo) List(ctx context.Context) ([]model.RatingStar, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, value FROM rating_stars ORDER BY value, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.RatingStar{}
	for rows.Next() {
		var s model.RatingStar
		if err := rows.Scan(&s.ID, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a star and every vote cast with it.
func (r *RatingStarRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rating_stars WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "rating star", id)
}

// EnsureValues inserts each value that has no star yet and reports how many
// rows were added. uq_rating_stars_value makes concurrent seeds safe.
func (r *RatingStarRepo) EnsureValues(ctx context.Context, values ...int16) (int, error) {
	added := 0
	for _, v := range values {
		res, err := r.db.ExecContext(ctx, "INSERT IGNORE INTO rating_stars (value) VALUES (?)", v)
		if err != nil {
			return added, translate(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return added, err
		}
		added += int(n)
	}
	return added, nil
}
