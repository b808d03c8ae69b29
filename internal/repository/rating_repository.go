package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// RatingRepo encapsulates queries on per-IP votes.
type RatingRepo struct {
	db *sql.DB
}

// NewRatingRepo constructs a RatingRepo with the provided DB handle.
func NewRatingRepo(db *sql.DB) *RatingRepo {
	return &RatingRepo{db: db}
}

const ratingSelect = `SELECT r.id, r.ip, r.star_id, r.movie_id, s.value, m.title
	FROM ratings r
	JOIN rating_stars s ON s.id = r.star_id
	JOIN movies m ON m.id = r.movie_id`

func scanRating(s rowScanner) (*model.Rating, error) {
	var r model.Rating
	if err := s.Scan(&r.ID, &r.IP, &r.StarID, &r.MovieID, &r.StarValue, &r.MovieTitle); err != nil {
		return nil, err
	}
	return &r, nil
}

// voteUpsert relies on uq_ratings_ip_movie. LAST_INSERT_ID(id) makes the
// driver report the existing row's id when the key already exists.
const voteUpsert = `INSERT INTO ratings (ip, star_id, movie_id) VALUES (?, ?, ?)
	ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), star_id = VALUES(star_id)`

const voteAttempts = 3

// Vote records the vote of rt.IP on rt.MovieID. A voter has one vote per
// movie: a repeat vote replaces the star. created reports whether no vote
// from that address existed when Vote started. Unknown stars or movies yield
// ErrForeignKey.
func (r *RatingRepo) Vote(ctx context.Context, rt *model.Rating) (created bool, err error) {
	if err := model.Validate(rt); err != nil {
		return false, err
	}
	var prior uint64
	err = r.db.QueryRowContext(ctx,
		"SELECT id FROM ratings WHERE ip = ? AND movie_id = ?", rt.IP, rt.MovieID).Scan(&prior)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	var res sql.Result
	for attempt := 1; ; attempt++ {
		res, err = r.db.ExecContext(ctx, voteUpsert, rt.IP, rt.StarID, rt.MovieID)
		if err == nil || !isDeadlock(err) || attempt == voteAttempts {
			break
		}
	}
	if err != nil {
		return false, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	rt.ID = uint64(id)
	return prior == 0, nil
}

// GetByIPAndMovie returns the vote an address cast on a movie.
func (r *RatingRepo) GetByIPAndMovie(ctx context.Context, ip string, movieID uint64) (*model.Rating, error) {
	rt, err := scanRating(r.db.QueryRowContext(ctx, ratingSelect+" WHERE r.ip = ? AND r.movie_id = ?", ip, movieID))
	if err != nil {
		return nil, notFound(err, "rating", ip)
	}
	return rt, nil
}

// ListByMovie returns every vote on a movie.
func (r *RatingRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Rating, error) {
	rows, err := r.db.QueryContext(ctx, ratingSelect+" WHERE r.movie_id = ? ORDER BY r.id", movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Rating{}
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rt)
	}
	return out, rows.Err()
}

// Summary averages the star values of a movie's votes.
func (r *RatingRepo) Summary(ctx context.Context, movieID uint64) (model.RatingSummary, error) {
	const q = `SELECT COALESCE(AVG(s.value), 0), COUNT(*)
	           FROM ratings r JOIN rating_stars s ON s.id = r.star_id
	           WHERE r.movie_id = ?`
	var sum model.RatingSummary
	if err := r.db.QueryRowContext(ctx, q, movieID).Scan(&sum.Average, &sum.Count); err != nil {
		return model.RatingSummary{}, err
	}
	return sum, nil
}

// Delete removes a vote.
func (r *RatingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM ratings WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "rating", id)
}
