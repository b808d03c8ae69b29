package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// ActorRepo encapsulates all queries on actors. Directors are actors too;
// the role lives in the join table a row is linked through.
type ActorRepo struct {
	db *sql.DB
}

// NewActorRepo constructs an ActorRepo with the provided DB handle.
func NewActorRepo(db *sql.DB) *ActorRepo {
	return &ActorRepo{db: db}
}

const actorColumns = "a.id, a.name, a.age, a.description, a.image"

func scanActor(s rowScanner) (*model.Actor, error) {
	var a model.Actor
	if err := s.Scan(&a.ID, &a.Name, &a.Age, &a.Description, &a.Image); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ActorRepo) list(ctx context.Context, q string, args ...any) ([]model.Actor, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Actor{}
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Create validates and inserts a, filling in its ID. A negative age fails
// validation before reaching the database.
func (r *ActorRepo) Create(ctx context.Context, a *model.Actor) error {
	if err := model.Validate(a); err != nil {
		return err
	}
	const q = "INSERT INTO actors (name, age, description, image) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, a.Name, a.Age, a.Description, a.Image)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches an actor by primary key.
func (r *ActorRepo) GetByID(ctx context.Context, id uint64) (*model.Actor, error) {
	const q = "SELECT " + actorColumns + " FROM actors a WHERE a.id = ?"
	a, err := scanActor(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err, "actor", id)
	}
	return a, nil
}

// List returns every actor ordered by name.
func (r *ActorRepo) List(ctx context.Context) ([]model.Actor, error) {
	return r.list(ctx, "SELECT "+actorColumns+" FROM actors a ORDER BY a.name, a.id")
}

// ListDirectorsOf returns the directors of a movie.
func (r *ActorRepo) ListDirectorsOf(ctx context.Context, movieID uint64) ([]model.Actor, error) {
	const q = "SELECT " + actorColumns + ` FROM actors a
	           JOIN movie_directors md ON md.actor_id = a.id
	           WHERE md.movie_id = ? ORDER BY a.name, a.id`
	return r.list(ctx, q, movieID)
}

// ListActorsOf returns the cast of a movie.
func (r *ActorRepo) ListActorsOf(ctx context.Context, movieID uint64) ([]model.Actor, error) {
	const q = "SELECT " + actorColumns + ` FROM actors a
	           JOIN movie_actors ma ON ma.actor_id = a.id
	           WHERE ma.movie_id = ? ORDER BY a.name, a.id`
	return r.list(ctx, q, movieID)
}

// Update overwrites every column of a.
func (r *ActorRepo) Update(ctx context.Context, a *model.Actor) error {
	if err := model.Validate(a); err != nil {
		return err
	}
	const q = "UPDATE actors SET name = ?, age = ?, description = ?, image = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, a.Name, a.Age, a.Description, a.Image, a.ID)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "actor", a.ID)
}

// Delete removes an actor and every director or cast link to it.
func (r *ActorRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM actors WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return mustAffect(res, "actor", id)
}
