package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// GenreRepo encapsulates all queries on genres.
type GenreRepo struct {
	db *sql.DB
}

// NewGenreRepo constructs a GenreRepo with the provided DB handle.
func NewGenreRepo(db *sql.DB) *GenreRepo {
	return &GenreRepo{db: db}
}

const genreColumns = "g.id, g.title, g.description, g.url"

func scanGenre(s rowScanner) (*model.Genre, error) {
	var g model.Genre
	if err := s.Scan(&g.ID, &g.Title, &g.Description, &g.URL); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GenreRepo) list(ctx context.Context, q string, args ...any) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Genre{}
	for rows.Next() {
		g, err := scanGenre(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// Create validates and inserts g, filling in its ID.
func (r *GenreRepo) Create(ctx context.Context, g *model.Genre) error {
	if err := model.Validate(g); err != nil {
		return err
	}
	const q = "INSERT INTO genres (title, description, url) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, g.Title, g.Description, g.URL)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// GetByID fetches a genre by primary key.
func (r *GenreRepo) GetByID(ctx context.Context, id uint64) (*model.Genre, error) {
	const q = "SELECT " + genreColumns + " FROM genres g WHERE g.id = ?"
	g, err := scanGenre(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err, "genre", id)
	}
	return g, nil
}

// GetByURL fetches a genre by its slug.
func (r *GenreRepo) GetByURL(ctx context.Context, url string) (*model.Genre, error) {
	const q = "SELECT " + genreColumns + " FROM genres g WHERE g.url = ?"
	g, err := scanGenre(r.db.QueryRowContext(ctx, q, url))
	if err != nil {
		return nil, notFound(err, "genre", url)
	}
	return g, nil
}

// List returns every genre ordered by title.
func (r *GenreRepo) List(ctx context.Context) ([]model.Genre, error) {
	return r.list(ctx, "SELECT "+genreColumns+" FROM genres g ORDER BY g.title, g.id")
}

// ListByMovie returns the genres linked to a movie.
func (r *GenreRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Genre, error) {
	const q = "SELECT " + genreColumns + ` FROM genres g
	           JOIN movie_genres mg ON mg.genre_id = g.id
	           WHERE mg.movie_id = ? ORDER BY g.title, g.id`
	return r.list(ctx, q, movieID)
}

// Update overwrites every column of g.
func (r *GenreRepo) Update(ctx context.Context, g *model.Genre) error {
	if err := model.Validate(g); err != nil {
		return err
	}
	const q = "UPDATE genres SET title = ?, description = ?, url = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, g.Title, g.Description, g.URL, g.ID)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "genre", g.ID)
}

// Delete removes a genre and its movie links.
func (r *GenreRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM genres WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "genre", id)
}
