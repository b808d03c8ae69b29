package handler

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-catalog/internal/logger"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
)

func init() {
	logger.SetOutput(io.Discard)
}

var (
	movieCols    = []string{"id", "title", "tagline", "description", "poster", "release_year", "country", "world_premiere_date", "budget", "fees_usa", "fees_world", "category_id", "url", "draft"}
	categoryCols = []string{"id", "name", "description", "url"}
	actorCols    = []string{"id", "name", "age", "description", "image"}
	genreCols    = []string{"id", "title", "description", "url"}
	shotCols     = []string{"id", "title", "description", "image", "movie_id"}
	reviewCols   = []string{"id", "email", "name", "feedback", "parent_id", "movie_id", "title"}
)

func movieRow(id int64, title, url string, category any) []driver.Value {
	return []driver.Value{id, title, "", "", "", 1995, "USA", time.Date(1995, 12, 15, 0, 0, 0, 0, time.UTC), 60000000, 67436818, 187436818, category, url, false}
}

// recorder collects published events.
type recorder struct {
	mu      sync.Mutex
	ratings []queue.RatingSubmittedEvent
	reviews []queue.ReviewPostedEvent
}

func (r *recorder) PublishRatingSubmitted(_ context.Context, ev queue.RatingSubmittedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings = append(r.ratings, ev)
	return nil
}

func (r *recorder) PublishReviewPosted(_ context.Context, ev queue.ReviewPostedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews = append(r.reviews, ev)
	return nil
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ratings), len(r.reviews)
}

type fixture struct {
	e      *echo.Echo
	mock   sqlmock.Sqlmock
	events *recorder
}

// newFixture mounts the public and admin handlers, without auth, over a
// sqlmock database.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	repos := NewRepos(db)
	events := &recorder{}
	pub := NewPublicHandler(repos, events)
	admin := NewAdminHandler(repos)

	e := echo.New()
	v1 := e.Group("/v1")
	v1.GET("/categories", pub.ListCategories)
	v1.GET("/genres", pub.ListGenres)
	v1.GET("/rating-stars", pub.ListRatingStars)
	v1.GET("/movies", pub.ListMovies)
	v1.GET("/movies/:slug", pub.GetMovie)
	v1.GET("/actors/:id", pub.GetActor)
	v1.POST("/movies/:slug/ratings", pub.RateMovie)
	v1.POST("/movies/:slug/reviews", pub.PostReview)
	admin.Register(e.Group("/v1/admin"))

	return &fixture{e: e, mock: mock, events: events}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.RemoteAddr = "10.0.0.1:4321"
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func mysqlErr(n uint16) error {
	return &mysql.MySQLError{Number: n, Message: "error"}
}

func (f *fixture) expectPublishedMovie(slug string, id int64) {
	f.mock.ExpectQuery("WHERE m.url = \\? AND m.draft = FALSE").WithArgs(slug).
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(movieRow(id, "Heat", slug, nil)...))
}

func TestListCategories(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("FROM categories").
		WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(1, "Films", "", "films").AddRow(2, "Series", "", "series"))

	rec := f.do(http.MethodGet, "/v1/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 2)
}

func TestListMoviesAppliesFilters(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("SELECT COUNT").WithArgs(1, 2, 1995, "%heat%").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(6))
	f.mock.ExpectQuery("LIMIT \\? OFFSET \\?").WithArgs(1, 2, 1995, "%heat%", 5, 5).
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(movieRow(7, "Heat", "heat", nil)...))

	rec := f.do(http.MethodGet, "/v1/movies?genre=2,1&year=1995&q=Heat&page=2&page_size=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 6, body["total"])
	assert.EqualValues(t, 2, body["page"])
	assert.EqualValues(t, 5, body["page_size"])
	assert.Len(t, body["items"], 1)
}

func TestListMoviesClampsHugePage(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	f.mock.ExpectQuery("LIMIT \\? OFFSET \\?").WithArgs(20, (repository.MaxPage-1)*20).
		WillReturnRows(sqlmock.NewRows(movieCols))

	rec := f.do(http.MethodGet, "/v1/movies?page=4611686018427387904", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, repository.MaxPage, decode(t, rec)["page"])
}

func TestListMoviesRejectsBadFilter(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/movies?genre=drama", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/movies?page=two", "").Code)
}

func TestGetMovieDetail(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("WHERE m.url = \\? AND m.draft = FALSE").WithArgs("heat").
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(movieRow(7, "Heat", "heat", 1)...))
	f.mock.ExpectQuery("FROM categories WHERE id = \\?").WithArgs(1).
		WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(1, "Films", "", "films"))
	f.mock.ExpectQuery("JOIN movie_directors").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(actorCols).AddRow(1, "Michael Mann", 80, "", ""))
	f.mock.ExpectQuery("JOIN movie_actors").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(actorCols).AddRow(2, "Al Pacino", 84, "", "").AddRow(3, "Robert De Niro", 80, "", ""))
	f.mock.ExpectQuery("JOIN movie_genres").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(genreCols).AddRow(4, "Crime", "", "crime"))
	f.mock.ExpectQuery("FROM movie_shots").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(shotCols).AddRow(1, "Diner", "", "diner.jpg", 7))
	f.mock.ExpectQuery("COALESCE\\(AVG").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"avg", "n"}).AddRow(4.5, 2))
	f.mock.ExpectQuery("FROM reviews r").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(reviewCols).
			AddRow(1, "ann@example.com", "Ann", "Classic", nil, 7, "Heat").
			AddRow(2, "bob@example.com", "Bob", "Agreed", 1, 7, "Heat"))

	rec := f.do(http.MethodGet, "/v1/movies/heat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "@example.com")

	body := decode(t, rec)
	assert.Equal(t, "Heat", body["title"])
	assert.Equal(t, "Films", body["category"].(map[string]any)["name"])
	assert.Len(t, body["directors"], 1)
	assert.Len(t, body["actors"], 2)
	assert.EqualValues(t, 4.5, body["rating"].(map[string]any)["average"])

	reviews := body["reviews"].([]any)
	require.Len(t, reviews, 1)
	replies := reviews[0].(map[string]any)["replies"].([]any)
	require.Len(t, replies, 1)
	assert.Equal(t, "Bob", replies[0].(map[string]any)["name"])
}

func TestGetMovieHidesDrafts(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("WHERE m.url = \\? AND m.draft = FALSE").WithArgs("director-cut").
		WillReturnRows(sqlmock.NewRows(movieCols))

	rec := f.do(http.MethodGet, "/v1/movies/director-cut", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode(t, rec)["error"])
}

func TestGetActorFilmography(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("FROM actors a WHERE a.id = \\?").WithArgs(1).
		WillReturnRows(sqlmock.NewRows(actorCols).AddRow(1, "Michael Mann", 80, "", ""))
	f.mock.ExpectQuery("JOIN movie_directors l").WithArgs(1).
		WillReturnRows(sqlmock.NewRows(movieCols).AddRow(movieRow(7, "Heat", "heat", nil)...))
	f.mock.ExpectQuery("JOIN movie_actors l").WithArgs(1).
		WillReturnRows(sqlmock.NewRows(movieCols))

	rec := f.do(http.MethodGet, "/v1/actors/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["directed"], 1)
	assert.Len(t, body["starring"], 0)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/actors/zero", "").Code)
}

func (f *fixture) expectStar(id, value int64) {
	f.mock.ExpectQuery("FROM rating_stars WHERE id = \\?").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "value"}).AddRow(id, value))
}

// expectVote queues the lookup and upsert of a vote on movie 7. prior is the
// id of an earlier vote from ip, 0 for none.
func (f *fixture) expectVote(ip string, prior, star, id, affected int64) {
	rows := sqlmock.NewRows([]string{"id"})
	if prior != 0 {
		rows.AddRow(prior)
	}
	f.mock.ExpectQuery("SELECT id FROM ratings WHERE ip = \\? AND movie_id = \\?").WithArgs(ip, 7).WillReturnRows(rows)
	f.mock.ExpectExec("ON DUPLICATE KEY UPDATE").WithArgs(ip, star, 7).WillReturnResult(sqlmock.NewResult(id, affected))
}

func TestRateMovieFirstVote(t *testing.T) {
	f := newFixture(t)
	f.expectPublishedMovie("heat", 7)
	f.expectStar(5, 5)
	f.expectVote("10.0.0.1", 0, 5, 30, 1)
	f.mock.ExpectQuery("COALESCE\\(AVG").WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"avg", "n"}).AddRow(5.0, 1))

	rec := f.do(http.MethodPost, "/v1/movies/heat/ratings", `{"star_id":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["created"])
	assert.EqualValues(t, 1, body["summary"].(map[string]any)["count"])

	require.Eventually(t, func() bool { n, _ := f.events.counts(); return n == 1 }, time.Second, 10*time.Millisecond)
	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	assert.Equal(t, "heat", f.events.ratings[0].MovieURL)
	assert.True(t, f.events.ratings[0].Created)
	assert.Equal(t, int16(5), f.events.ratings[0].StarValue)
}

func TestRateMovieChangedVote(t *testing.T) {
	f := newFixture(t)
	f.expectPublishedMovie("heat", 7)
	f.expectStar(2, 2)
	f.expectVote("10.0.0.1", 30, 2, 30, 2)
	f.mock.ExpectQuery("COALESCE\\(AVG").WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"avg", "n"}).AddRow(2.0, 1))

	rec := f.do(http.MethodPost, "/v1/movies/heat/ratings", `{"star_id":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["created"])
}

func TestRateMovieUnknownStar(t *testing.T) {
	f := newFixture(t)
	f.expectPublishedMovie("heat", 7)
	f.mock.ExpectQuery("FROM rating_stars WHERE id = \\?").WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "value"}))

	rec := f.do(http.MethodPost, "/v1/movies/heat/ratings", `{"star_id":99}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRateMovieRejectsNonIPv4Voter(t *testing.T) {
	f := newFixture(t)
	f.expectPublishedMovie("heat", 7)
	f.expectStar(5, 5)

	req := httptest.NewRequest(http.MethodPost, "/v1/movies/heat/ratings", strings.NewReader(`{"star_id":5}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "[2001:db8::1]:4321"
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"ip"`)
}

func TestRateMovieRequiresStar(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/movies/heat/ratings", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/movies/heat/ratings", `{"star_id":`).Code)
}

func TestPostReview(t *testing.T) {
	f := newFixture(t)
	f.expectPublishedMovie("heat", 7)
	f.mock.ExpectBegin()
	f.mock.ExpectExec("INSERT INTO reviews").WithArgs("ann@example.com", "Ann", "Classic", nil, 7).
		WillReturnResult(sqlmock.NewResult(12, 1))
	f.mock.ExpectCommit()

	rec := f.do(http.MethodPost, "/v1/movies/heat/reviews", `{"email":"ann@example.com","name":"Ann","feedback":"Classic"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "ann@example.com")
	assert.EqualValues(t, 12, decode(t, rec)["id"])

	require.Eventually(t, func() bool { _, n := f.events.counts(); return n == 1 }, time.Second, 10*time.Millisecond)
}

func TestPostReviewValidation(t *testing.T) {
	f := newFixture(t)
	f.expectPublishedMovie("heat", 7)

	rec := f.do(http.MethodPost, "/v1/movies/heat/reviews", `{"email":"not-an-email","name":"Ann","feedback":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	assert.Contains(t, rec.Body.String(), `"field":"email"`)
}

func TestPostReviewReplyToOtherMovie(t *testing.T) {
	f := newFixture(t)
	f.expectPublishedMovie("heat", 7)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery("SELECT movie_id FROM reviews").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id"}).AddRow(8))
	f.mock.ExpectRollback()

	rec := f.do(http.MethodPost, "/v1/movies/heat/reviews", `{"email":"a@b.co","name":"A","feedback":"x","parent_id":3}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	_, n := f.events.counts()
	assert.Zero(t, n)
}

func TestAdminCategoryDuplicateURL(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec("INSERT INTO categories").WithArgs("Films", "", "films").WillReturnError(mysqlErr(1062))

	rec := f.do(http.MethodPost, "/v1/admin/categories", `{"name":"Films","url":"films"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminCreateMovieWithLinks(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectExec("INSERT INTO movies").WillReturnResult(sqlmock.NewResult(7, 1))
	f.mock.ExpectExec("DELETE FROM movie_directors").WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec("INSERT INTO movie_directors").WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec("DELETE FROM movie_genres").WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec("INSERT INTO movie_genres").WithArgs(7, 4).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	rec := f.do(http.MethodPost, "/v1/admin/movies",
		`{"title":"Heat","url":"heat","draft":true,"director_ids":[1],"genre_ids":[4]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 7, body["id"])
	assert.EqualValues(t, 2022, body["release_year"])
	assert.Equal(t, true, body["draft"])
}

func TestAdminCreateMovieUnknownCategory(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectExec("INSERT INTO movies").WillReturnError(mysqlErr(1452))
	f.mock.ExpectRollback()

	rec := f.do(http.MethodPost, "/v1/admin/movies", `{"title":"Heat","url":"heat","category_id":404}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdminActorNegativeAge(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/v1/admin/actors", `{"name":"Nobody","age":-3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"age"`)
}

func TestAdminUpdateUsesPathID(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec("UPDATE genres SET").WithArgs("Crime", "", "crime", 4).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := f.do(http.MethodPut, "/v1/admin/genres/4", `{"id":99,"title":"Crime","url":"crime"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decode(t, rec)["id"])
}

func TestAdminDeleteMissing(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec("DELETE FROM movies WHERE id = ?").WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/v1/admin/movies/5", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/v1/admin/movies/abc", "").Code)
}

func TestAdminDeleteCategory(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec("DELETE FROM categories WHERE id = ?").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/admin/categories/1", "").Code)
}

func TestAdminSeedRatingStars(t *testing.T) {
	f := newFixture(t)
	for v := int64(1); v <= 5; v++ {
		var affected int64
		if v > 3 {
			affected = 1
		}
		f.mock.ExpectExec("INSERT IGNORE INTO rating_stars").WithArgs(v).WillReturnResult(sqlmock.NewResult(v, affected))
	}

	rec := f.do(http.MethodPost, "/v1/admin/rating-stars/seed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["added"])
}

func TestAdminListReviewsShowsEmail(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("FROM reviews r").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(reviewCols).AddRow(1, "ann@example.com", "Ann", "Classic", nil, 7, "Heat"))

	rec := f.do(http.MethodGet, "/v1/admin/movies/7/reviews", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ann@example.com")
}

type failingPinger struct{ err error }

func (p failingPinger) PingContext(context.Context) error { return p.err }

func TestHealthAndReady(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	e.GET("/ready-ok", Ready(failingPinger{}))
	e.GET("/ready-down", Ready(failingPinger{err: assert.AnError}))

	for path, want := range map[string]int{"/healthz": 200, "/ready-ok": 200, "/ready-down": 503} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}
