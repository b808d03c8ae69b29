package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// MovieShotRepo encapsulates queries on movie stills.
type MovieShotRepo struct {
	db *sql.DB
}

// NewMovieShotRepo constructs a MovieShotRepo with the provided DB handle.
func NewMovieShotRepo(db *sql.DB) *MovieShotRepo {
	return &MovieShotRepo{db: db}
}

const shotColumns = "id, title, description, image, movie_id"

func scanShot(s rowScanner) (*model.MovieShot, error) {
	var sh model.MovieShot
	if err := s.Scan(&sh.ID, &sh.Title, &sh.Description, &sh.Image, &sh.MovieID); err != nil {
		return nil, err
	}
	return &sh, nil
}

// Create validates and inserts s. An unknown movie yields ErrForeignKey.
func (r *MovieShotRepo) Create(ctx context.Context, s *model.MovieShot) error {
	if err := model.Validate(s); err != nil {
		return err
	}
	const q = "INSERT INTO movie_shots (title, description, image, movie_id) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, s.Title, s.Description, s.Image, s.MovieID)
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

// GetByID fetches a still by primary key.
func (r *MovieShotRepo) GetByID(ctx context.Context, id uint64) (*model.MovieShot, error) {
	const q = "SELECT " + shotColumns + " FROM movie_shots WHERE id = ?"
	s, err := scanShot(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err, "movie shot", id)
	}
	return s, nil
}

// ListByMovie returns the stills of a movie in insertion order.
func (r *MovieShotRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.MovieShot, error) {
	const q = "SELECT " + shotColumns + " FROM movie_shots WHERE movie_id = ? ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MovieShot{}
	for rows.Next() {
		s, err := scanShot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update overwrites every column of s, including which movie it belongs to.
func (r *MovieShotRepo) Update(ctx context.Context, s *model.MovieShot) error {
	if err := model.Validate(s); err != nil {
		return err
	}
	const q = "UPDATE movie_shots SET title = ?, description = ?, image = ?, movie_id = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, s.Title, s.Description, s.Image, s.MovieID, s.ID)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "movie shot", s.ID)
}

// Delete removes a still.
func (r *MovieShotRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM movie_shots WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "movie shot", id)
}
