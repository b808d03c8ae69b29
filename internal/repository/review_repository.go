package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// ReviewRepo encapsulates queries on reviews.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo constructs a ReviewRepo with the provided DB handle.
func NewReviewRepo(db *sql.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

const reviewSelect = `SELECT r.id, r.email, r.name, r.feedback, r.parent_id, r.movie_id, m.title
	FROM reviews r JOIN movies m ON m.id = r.movie_id`

func scanReview(s rowScanner) (*model.Review, error) {
	var (
		rv     model.Review
		parent sql.NullInt64
	)
	if err := s.Scan(&rv.ID, &rv.Email, &rv.Name, &rv.Feedback, &parent, &rv.MovieID, &rv.MovieTitle); err != nil {
		return nil, err
	}
	if parent.Valid {
		id := uint64(parent.Int64)
		rv.ParentID = &id
	}
	return &rv, nil
}

// Create validates and inserts rv. A reply must point at an existing review
// of the same movie: a missing parent yields ErrForeignKey and a parent on
// another movie yields ErrConflict.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	if err := model.Validate(rv); err != nil {
		return err
	}
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if rv.ParentID != nil {
			var parentMovie uint64
			err := tx.QueryRowContext(ctx,
				"SELECT movie_id FROM reviews WHERE id = ? FOR UPDATE", *rv.ParentID).Scan(&parentMovie)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: parent review %d does not exist", ErrForeignKey, *rv.ParentID)
			}
			if err != nil {
				return err
			}
			if parentMovie != rv.MovieID {
				return fmt.Errorf("%w: parent review %d belongs to movie %d", ErrConflict, *rv.ParentID, parentMovie)
			}
		}
		const q = "INSERT INTO reviews (email, name, feedback, parent_id, movie_id) VALUES (?, ?, ?, ?, ?)"
		res, err := tx.ExecContext(ctx, q, rv.Email, rv.Name, rv.Feedback, rv.ParentID, rv.MovieID)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rv.ID = uint64(id)
		return nil
	})
	return translate(err)
}

// GetByID fetches a review by primary key.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (*model.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect+" WHERE r.id = ?", id))
	if err != nil {
		return nil, notFound(err, "review", id)
	}
	return rv, nil
}

// ListByMovie returns the reviews of a movie ordered by id, ready for
// model.BuildReviewTree.
func (r *ReviewRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, reviewSelect+" WHERE r.movie_id = ? ORDER BY r.id", movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}

// Delete removes a review. Its replies stay, detached from the thread.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "review", id)
}
