// Package handler exposes the catalog over HTTP: public browsing, public
// votes and reviews, and the admin API.
package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/logger"
	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/repository"
)

// Repos bundles the repositories the handlers read and write.
type Repos struct {
	Categories *repository.CategoryRepo
	Genres     *repository.GenreRepo
	Actors     *repository.ActorRepo
	Movies     *repository.MovieRepo
	Shots      *repository.MovieShotRepo
	Stars      *repository.RatingStarRepo
	Ratings    *repository.RatingRepo
	Reviews    *repository.ReviewRepo
}

// NewRepos builds every repository over one pool.
func NewRepos(db *sql.DB) Repos {
	return Repos{
		Categories: repository.NewCategoryRepo(db),
		Genres:     repository.NewGenreRepo(db),
		Actors:     repository.NewActorRepo(db),
		Movies:     repository.NewMovieRepo(db),
		Shots:      repository.NewMovieShotRepo(db),
		Stars:      repository.NewRatingStarRepo(db),
		Ratings:    repository.NewRatingRepo(db),
		Reviews:    repository.NewReviewRepo(db),
	}
}

func (r Repos) complete() bool {
	return r.Categories != nil && r.Genres != nil && r.Actors != nil && r.Movies != nil &&
		r.Shots != nil && r.Stars != nil && r.Ratings != nil && r.Reviews != nil
}

// writeError maps repository and validation errors onto HTTP responses.
// Anything unrecognised is logged and reported as a 500.
func writeError(c echo.Context, err error) error {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, repository.ErrForeignKey):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "referenced record does not exist"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicts with existing data"})
	case errors.Is(err, repository.ErrInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid value"})
	}
	logger.Get().WithError(err).WithField("path", c.Request().URL.Path).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// queryUints collects a repeatable query parameter. Both ?k=1&k=2 and
// ?k=1,2 are accepted.
func queryUints(c echo.Context, key string) ([]uint64, error) {
	var out []uint64
	for _, raw := range c.QueryParams()[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+key)
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+key)
	}
	return n, nil
}
