package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/service"
)

// PublicHandler serves the unauthenticated catalog. Drafts are never
// visible through it.
type PublicHandler struct {
	Repos
	Events service.Publisher
}

// NewPublicHandler panics when a repository or the publisher is missing.
func NewPublicHandler(repos Repos, events service.Publisher) *PublicHandler {
	if !repos.complete() || events == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{Repos: repos, Events: events}
}

// ListCategories returns {"items": [...]} with every category.
func (h *PublicHandler) ListCategories(c echo.Context) error {
	items, err := h.Categories.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListGenres returns {"items": [...]} with every genre.
func (h *PublicHandler) ListGenres(c echo.Context) error {
	items, err := h.Genres.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListRatingStars returns the allowed vote values.
func (h *PublicHandler) ListRatingStars(c echo.Context) error {
	items, err := h.Stars.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// movieSummary is a movie as shown in listings.
type movieSummary struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Tagline     string  `json:"tagline"`
	Poster      string  `json:"poster"`
	ReleaseYear int     `json:"release_year"`
	CategoryID  *uint64 `json:"category_id,omitempty"`
	URL         string  `json:"url"`
}

func summarize(movies []model.Movie) []movieSummary {
	out := make([]movieSummary, 0, len(movies))
	for _, m := range movies {
		out = append(out, movieSummary{
			ID:          m.ID,
			Title:       m.Title,
			Tagline:     m.Tagline,
			Poster:      m.Poster,
			ReleaseYear: m.ReleaseYear,
			CategoryID:  m.CategoryID,
			URL:         m.URL,
		})
	}
	return out
}

// ListMovies pages through published movies. Query parameters: genre and
// year (repeatable or comma separated), category, q (title substring),
// page and page_size.
func (h *PublicHandler) ListMovies(c echo.Context) error {
	var (
		f   repository.MovieFilter
		err error
	)
	if f.GenreIDs, err = queryUints(c, "genre"); err != nil {
		return err
	}
	years, err := queryUints(c, "year")
	if err != nil {
		return err
	}
	for _, y := range years {
		f.Years = append(f.Years, int(y))
	}
	categories, err := queryUints(c, "category")
	if err != nil {
		return err
	}
	if len(categories) > 0 {
		f.CategoryID = &categories[0]
	}
	f.Query = c.QueryParam("q")
	if f.Page, err = queryInt(c, "page"); err != nil {
		return err
	}
	if f.PageSize, err = queryInt(c, "page_size"); err != nil {
		return err
	}
	f.Normalize()

	movies, total, err := h.Movies.ListPublished(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     summarize(movies),
		"page":      f.Page,
		"page_size": f.PageSize,
		"total":     total,
	})
}

// GetMovie returns the full page of a published movie by slug: category,
// directors, cast, genres, stills, rating summary and threaded reviews.
// Reviewer emails are not exposed.
func (h *PublicHandler) GetMovie(c echo.Context) error {
	ctx := c.Request().Context()
	m, err := h.Movies.GetPublishedByURL(ctx, c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}

	d := model.MovieDetail{Movie: *m}
	if m.CategoryID != nil {
		cat, err := h.Categories.GetByID(ctx, *m.CategoryID)
		switch {
		case err == nil:
			d.Category = cat
		case !errors.Is(err, repository.ErrNotFound):
			return writeError(c, err)
		}
	}
	if d.Directors, err = h.Actors.ListDirectorsOf(ctx, m.ID); err != nil {
		return writeError(c, err)
	}
	if d.Actors, err = h.Actors.ListActorsOf(ctx, m.ID); err != nil {
		return writeError(c, err)
	}
	if d.Genres, err = h.Genres.ListByMovie(ctx, m.ID); err != nil {
		return writeError(c, err)
	}
	if d.Shots, err = h.Shots.ListByMovie(ctx, m.ID); err != nil {
		return writeError(c, err)
	}
	if d.Rating, err = h.Ratings.Summary(ctx, m.ID); err != nil {
		return writeError(c, err)
	}
	reviews, err := h.Reviews.ListByMovie(ctx, m.ID)
	if err != nil {
		return writeError(c, err)
	}
	for i := range reviews {
		reviews[i].Email = ""
	}
	d.Reviews = model.BuildReviewTree(reviews)
	return c.JSON(http.StatusOK, d)
}

// GetActor returns an actor with the published movies they directed and
// played in.
func (h *PublicHandler) GetActor(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	a, err := h.Actors.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	directed, err := h.Movies.ListPublishedDirectedBy(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	starring, err := h.Movies.ListPublishedStarring(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"actor":    a,
		"directed": summarize(directed),
		"starring": summarize(starring),
	})
}
