package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-catalog/internal/model"
)

var actorCols = []string{"id", "name", "age", "description", "image"}

func TestActorRepoNegativeAgeNeverReachesDB(t *testing.T) {
	db, _ := newMock(t)
	repo := NewActorRepo(db)

	for _, save := range []func(*model.Actor) error{
		func(a *model.Actor) error { return repo.Create(context.Background(), a) },
		func(a *model.Actor) error { return repo.Update(context.Background(), a) },
	} {
		err := save(&model.Actor{ID: 1, Name: "Nobody", Age: -3})
		var verr *model.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "age", verr.Fields[0].Field)
	}
}

func TestActorRepoCreateCheckViolation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActorRepo(db)

	mock.ExpectExec("INSERT INTO actors").
		WithArgs("Nobody", 3, "", "").
		WillReturnError(mysqlErr(3819))

	err := repo.Create(context.Background(), &model.Actor{Name: "Nobody", Age: 3})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestActorRepoRoles(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActorRepo(db)

	mock.ExpectQuery("JOIN movie_directors md ON md.actor_id = a.id").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(actorCols).AddRow(1, "Lana Wachowski", 58, "", "actors/lana.jpg"))
	mock.ExpectQuery("JOIN movie_actors ma ON ma.actor_id = a.id").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(actorCols).
			AddRow(2, "Carrie-Anne Moss", 57, "", "").
			AddRow(3, "Keanu Reeves", 59, "", ""))

	directors, err := repo.ListDirectorsOf(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, directors, 1)
	assert.Equal(t, "actors/lana.jpg", directors[0].Image)

	cast, err := repo.ListActorsOf(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, cast, 2)
}

func TestActorRepoGetAndDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActorRepo(db)

	mock.ExpectQuery("FROM actors a WHERE a.id = ?").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(actorCols).AddRow(3, "Keanu Reeves", 59, "", ""))
	mock.ExpectExec("DELETE FROM actors WHERE id = ?").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 59, a.Age)
	assert.NoError(t, repo.Delete(context.Background(), 3))
}
