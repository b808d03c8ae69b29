package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// resource wires the usual admin endpoints for one record type onto its
// repository methods. A nil operation is simply not routed.
type resource[T any] struct {
	create func(context.Context, *T) error
	get    func(context.Context, uint64) (*T, error)
	list   func(context.Context) ([]T, error)
	update func(context.Context, *T) error
	remove func(context.Context, uint64) error
	setID  func(*T, uint64)
}

// Create binds a JSON body, stores it and echoes the stored record with 201.
func (r resource[T]) Create(c echo.Context) error {
	v := new(T)
	if err := c.Bind(v); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	r.setID(v, 0)
	if err := r.create(c.Request().Context(), v); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// Get returns the record named by the :id path parameter.
func (r resource[T]) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	v, err := r.get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// List returns {"items": [...]}.
func (r resource[T]) List(c echo.Context) error {
	items, err := r.list(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Update replaces the record named by :id with the JSON body.
func (r resource[T]) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	v := new(T)
	if err := c.Bind(v); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	r.setID(v, id)
	if err := r.update(c.Request().Context(), v); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Delete removes the record named by :id and answers 204.
func (r resource[T]) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := r.remove(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// route registers the operations r supports under prefix.
func (r resource[T]) route(g *echo.Group, prefix string) {
	if r.list != nil {
		g.GET(prefix, r.List)
	}
	if r.create != nil {
		g.POST(prefix, r.Create)
	}
	if r.get != nil {
		g.GET(prefix+"/:id", r.Get)
	}
	if r.update != nil {
		g.PUT(prefix+"/:id", r.Update)
	}
	if r.remove != nil {
		g.DELETE(prefix+"/:id", r.Delete)
	}
}

// AdminHandler edits the catalog. It sees drafts and every review, email
// addresses included.
type AdminHandler struct {
	Repos

	categories resource[model.Category]
	genres     resource[model.Genre]
	actors     resource[model.Actor]
	movies     resource[model.Movie]
	shots      resource[model.MovieShot]
	stars      resource[model.RatingStar]
	reviews    resource[model.Review]
}

// NewAdminHandler panics when a repository is missing.
func NewAdminHandler(repos Repos) *AdminHandler {
	if !repos.complete() {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{
		Repos: repos,
		categories: resource[model.Category]{
			create: repos.Categories.Create,
			get:    repos.Categories.GetByID,
			list:   repos.Categories.List,
			update: repos.Categories.Update,
			remove: repos.Categories.Delete,
			setID:  func(v *model.Category, id uint64) { v.ID = id },
		},
		genres: resource[model.Genre]{
			create: repos.Genres.Create,
			get:    repos.Genres.GetByID,
			list:   repos.Genres.List,
			update: repos.Genres.Update,
			remove: repos.Genres.Delete,
			setID:  func(v *model.Genre, id uint64) { v.ID = id },
		},
		actors: resource[model.Actor]{
			create: repos.Actors.Create,
			get:    repos.Actors.GetByID,
			list:   repos.Actors.List,
			update: repos.Actors.Update,
			remove: repos.Actors.Delete,
			setID:  func(v *model.Actor, id uint64) { v.ID = id },
		},
		movies: resource[model.Movie]{
			create: repos.Movies.Create,
			get:    repos.Movies.GetByID,
			list:   repos.Movies.List,
			update: repos.Movies.Update,
			remove: repos.Movies.Delete,
			setID:  func(v *model.Movie, id uint64) { v.ID = id },
		},
		shots: resource[model.MovieShot]{
			create: repos.Shots.Create,
			get:    repos.Shots.GetByID,
			update: repos.Shots.Update,
			remove: repos.Shots.Delete,
			setID:  func(v *model.MovieShot, id uint64) { v.ID = id },
		},
		stars: resource[model.RatingStar]{
			create: repos.Stars.Create,
			get:    repos.Stars.GetByID,
			list:   repos.Stars.List,
			remove: repos.Stars.Delete,
			setID:  func(v *model.RatingStar, id uint64) { v.ID = id },
		},
		reviews: resource[model.Review]{
			get:    repos.Reviews.GetByID,
			remove: repos.Reviews.Delete,
			setID:  func(v *model.Review, id uint64) { v.ID = id },
		},
	}
}

// Register mounts every admin route on g.
func (h *AdminHandler) Register(g *echo.Group) {
	h.categories.route(g, "/categories")
	h.genres.route(g, "/genres")
	h.actors.route(g, "/actors")
	h.movies.route(g, "/movies")
	h.shots.route(g, "/shots")
	h.stars.route(g, "/rating-stars")
	h.reviews.route(g, "/reviews")

	g.POST("/rating-stars/seed", h.SeedRatingStars)
	g.GET("/movies/:id/shots", h.ListShots)
	g.GET("/movies/:id/reviews", h.ListReviews)
	g.GET("/movies/:id/ratings", h.ListRatings)
	g.DELETE("/ratings/:id", h.DeleteRating)
}

type seedRequest struct {
	Values []int16 `json:"values"`
}

// SeedRatingStars adds the missing star values, 1 to 5 when the body names
// none, and reports how many were added.
func (h *AdminHandler) SeedRatingStars(c echo.Context) error {
	var req seedRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Values) == 0 {
		req.Values = []int16{1, 2, 3, 4, 5}
	}
	added, err := h.Stars.EnsureValues(c.Request().Context(), req.Values...)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"added": added})
}

// ListShots returns the stills of the movie named by :id.
func (h *AdminHandler) ListShots(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.Shots.ListByMovie(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListReviews returns every review of the movie named by :id as a flat list.
func (h *AdminHandler) ListReviews(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.Reviews.ListByMovie(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListRatings returns every vote on the movie named by :id.
func (h *AdminHandler) ListRatings(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, err := h.Ratings.ListByMovie(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	summary, err := h.Ratings.Summary(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "summary": summary})
}

// DeleteRating removes one vote.
func (h *AdminHandler) DeleteRating(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Ratings.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
