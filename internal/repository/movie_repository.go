package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// MovieRepo encapsulates queries on movies and their director, actor and
// genre link tables.
type MovieRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewMovieRepo constructs a MovieRepo with the provided DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db, now: time.Now}
}

// MovieFilter narrows the public movie listing. Zero values disable a
// filter; set filters are combined with AND.
type MovieFilter struct {
	GenreIDs   []uint64
	Years      []int
	CategoryID *uint64
	Query      string
	Page       int
	PageSize   int
}

// Paging limits for ListPublished. MaxPage keeps the OFFSET in range.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 10000
)

// Normalize clamps paging to sane values.
func (f *MovieFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// link describes one many-to-many join table hanging off movies.
type link struct {
	table  string
	column string
}

var (
	directorsLink = link{table: "movie_directors", column: "actor_id"}
	actorsLink    = link{table: "movie_actors", column: "actor_id"}
	genresLink    = link{table: "movie_genres", column: "genre_id"}
)

const movieColumns = `m.id, m.title, m.tagline, m.description, m.poster, m.release_year,
	m.country, m.world_premiere_date, m.budget, m.fees_usa, m.fees_world,
	m.category_id, m.url, m.draft`

func scanMovie(s rowScanner) (*model.Movie, error) {
	var (
		m        model.Movie
		category sql.NullInt64
	)
	if err := s.Scan(&m.ID, &m.Title, &m.Tagline, &m.Description, &m.Poster, &m.ReleaseYear,
		&m.Country, &m.WorldPremiereDate, &m.Budget, &m.FeesUSA, &m.FeesWorld,
		&category, &m.URL, &m.Draft); err != nil {
		return nil, err
	}
	if category.Valid {
		id := uint64(category.Int64)
		m.CategoryID = &id
	}
	return &m, nil
}

func (r *MovieRepo) list(ctx context.Context, q string, args ...any) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Create validates m, applies its defaults and inserts it together with its
// link sets in one transaction.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	m.ApplyDefaults(r.now())
	if err := model.Validate(m); err != nil {
		return err
	}
	const q = `INSERT INTO movies (title, tagline, description, poster, release_year, country,
	           world_premiere_date, budget, fees_usa, fees_world, category_id, url, draft)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return translate(withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, m.Title, m.Tagline, m.Description, m.Poster, m.ReleaseYear,
			m.Country, model.DateOf(m.WorldPremiereDate), m.Budget, m.FeesUSA, m.FeesWorld,
			m.CategoryID, m.URL, m.Draft)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		m.ID = uint64(id)
		return r.writeLinks(ctx, tx, m)
	}))
}

// Update overwrites the movie row. Link sets are replaced only when the
// corresponding slice is non-nil, so an empty slice clears a set and a nil
// slice leaves it alone.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	m.ApplyDefaults(r.now())
	if err := model.Validate(m); err != nil {
		return err
	}
	const q = `UPDATE movies SET title = ?, tagline = ?, description = ?, poster = ?,
	           release_year = ?, country = ?, world_premiere_date = ?, budget = ?,
	           fees_usa = ?, fees_world = ?, category_id = ?, url = ?, draft = ?
	           WHERE id = ?`
	return translate(withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, m.Title, m.Tagline, m.Description, m.Poster,
			m.ReleaseYear, m.Country, model.DateOf(m.WorldPremiereDate), m.Budget,
			m.FeesUSA, m.FeesWorld, m.CategoryID, m.URL, m.Draft, m.ID)
		if err != nil {
			return err
		}
		if err := mustAffect(res, "movie", m.ID); err != nil {
			return err
		}
		return r.writeLinks(ctx, tx, m)
	}))
}

func (r *MovieRepo) writeLinks(ctx context.Context, tx execer, m *model.Movie) error {
	for _, l := range []struct {
		link
		ids []uint64
	}{
		{directorsLink, m.DirectorIDs},
		{actorsLink, m.ActorIDs},
		{genresLink, m.GenreIDs},
	} {
		if l.ids == nil {
			continue
		}
		if err := replaceLinks(ctx, tx, l.link, m.ID, l.ids); err != nil {
			return err
		}
	}
	return nil
}

// replaceLinks swaps the link set of one movie for ids. Unknown ids fail
// with a foreign key violation.
func replaceLinks(ctx context.Context, tx execer, l link, movieID uint64, ids []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+l.table+" WHERE movie_id = ?", movieID); err != nil {
		return fmt.Errorf("clear %s: %w", l.table, err)
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, 2*len(ids))
	for _, id := range ids {
		args = append(args, movieID, id)
	}
	q := "INSERT INTO " + l.table + " (movie_id, " + l.column + ") VALUES " +
		strings.TrimSuffix(strings.Repeat("(?, ?), ", len(ids)), ", ")
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("fill %s: %w", l.table, err)
	}
	return nil
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *MovieRepo) linkIDs(ctx context.Context, l link, movieID uint64) ([]uint64, error) {
	q := "SELECT " + l.column + " FROM " + l.table + " WHERE movie_id = ? ORDER BY " + l.column
	rows, err := r.db.QueryContext(ctx, q, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetByID fetches a movie, drafts included, with its link ids.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	const q = "SELECT " + movieColumns + " FROM movies m WHERE m.id = ?"
	m, err := scanMovie(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err, "movie", id)
	}
	if m.DirectorIDs, err = r.linkIDs(ctx, directorsLink, id); err != nil {
		return nil, err
	}
	if m.ActorIDs, err = r.linkIDs(ctx, actorsLink, id); err != nil {
		return nil, err
	}
	if m.GenreIDs, err = r.linkIDs(ctx, genresLink, id); err != nil {
		return nil, err
	}
	return m, nil
}

// GetPublishedByURL fetches a non-draft movie by slug. Drafts are reported
// as not found.
func (r *MovieRepo) GetPublishedByURL(ctx context.Context, url string) (*model.Movie, error) {
	const q = "SELECT " + movieColumns + " FROM movies m WHERE m.url = ? AND m.draft = FALSE"
	m, err := scanMovie(r.db.QueryRowContext(ctx, q, url))
	if err != nil {
		return nil, notFound(err, "movie", url)
	}
	return m, nil
}

// List returns every movie, drafts included, ordered by id.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	return r.list(ctx, "SELECT "+movieColumns+" FROM movies m ORDER BY m.id")
}

// likeEscaper makes user text match literally inside LIKE ... ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ListPublished returns one page of non-draft movies matching f and the
// total number of matches.
func (r *MovieRepo) ListPublished(ctx context.Context, f MovieFilter) ([]model.Movie, int64, error) {
	f.Normalize()
	where := []string{"m.draft = FALSE"}
	args := []any{}

	if ids := uniqueIDs(f.GenreIDs); len(ids) > 0 {
		where = append(where, "m.id IN (SELECT mg.movie_id FROM movie_genres mg WHERE mg.genre_id IN ("+placeholders(len(ids))+"))")
		for _, id := range ids {
			args = append(args, id)
		}
	}
	if len(f.Years) > 0 {
		where = append(where, "m.release_year IN ("+placeholders(len(f.Years))+")")
		for _, y := range f.Years {
			args = append(args, y)
		}
	}
	if f.CategoryID != nil {
		where = append(where, "m.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "LOWER(m.title) LIKE ? ESCAPE '!'")
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q))+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies m WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Movie{}, 0, nil
	}

	dataSQL := "SELECT " + movieColumns + " FROM movies m WHERE " + cond + " ORDER BY m.id LIMIT ? OFFSET ?"
	out, err := r.list(ctx, dataSQL, append(args, f.PageSize, (f.Page-1)*f.PageSize)...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListPublishedDirectedBy returns the non-draft movies an actor directed.
func (r *MovieRepo) ListPublishedDirectedBy(ctx context.Context, actorID uint64) ([]model.Movie, error) {
	return r.listPublishedByLink(ctx, directorsLink, actorID)
}

// ListPublishedStarring returns the non-draft movies an actor played in.
func (r *MovieRepo) ListPublishedStarring(ctx context.Context, actorID uint64) ([]model.Movie, error) {
	return r.listPublishedByLink(ctx, actorsLink, actorID)
}

func (r *MovieRepo) listPublishedByLink(ctx context.Context, l link, id uint64) ([]model.Movie, error) {
	q := "SELECT " + movieColumns + " FROM movies m JOIN " + l.table + " l ON l.movie_id = m.id" +
		" WHERE l." + l.column + " = ? AND m.draft = FALSE ORDER BY m.release_year DESC, m.id"
	return r.list(ctx, q, id)
}

// Delete removes a movie. Its stills, ratings, reviews and links go with it.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "movie", id)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
