package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-catalog/internal/logger"
	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
)

// publishTimeout bounds a background publish.
const publishTimeout = 5 * time.Second

// publish runs fn off the request goroutine so a slow or missing broker
// never delays the response.
func publish(kind string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.Get().WithError(err).WithField("event", kind).Debug("event not published")
		}
	}()
}

type voteRequest struct {
	StarID uint64 `json:"star_id"`
}

// RateMovie records the caller's vote on a published movie. The caller is
// identified by IPv4 address; voting again replaces the earlier star.
// Responds 201 for a first vote and 200 for a changed one, with the new
// rating summary.
func (h *PublicHandler) RateMovie(c echo.Context) error {
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.StarID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "star_id is required"})
	}

	ctx := c.Request().Context()
	m, err := h.Movies.GetPublishedByURL(ctx, c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}
	star, err := h.Stars.GetByID(ctx, req.StarID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "unknown star"})
	}
	if err != nil {
		return writeError(c, err)
	}

	rt := &model.Rating{IP: c.RealIP(), StarID: star.ID, MovieID: m.ID, StarValue: star.Value, MovieTitle: m.Title}
	created, err := h.Ratings.Vote(ctx, rt)
	if err != nil {
		return writeError(c, err)
	}
	summary, err := h.Ratings.Summary(ctx, m.ID)
	if err != nil {
		return writeError(c, err)
	}

	ev := queue.RatingSubmittedEvent{
		MovieID:     m.ID,
		MovieURL:    m.URL,
		StarID:      star.ID,
		StarValue:   star.Value,
		IP:          rt.IP,
		Created:     created,
		SubmittedAt: time.Now().UTC(),
	}
	publish("rating.submitted", func(ctx context.Context) error {
		return h.Events.PublishRatingSubmitted(ctx, ev)
	})

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{"rating": rt, "created": created, "summary": summary})
}

type reviewRequest struct {
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Feedback string  `json:"feedback"`
	ParentID *uint64 `json:"parent_id"`
}

// PostReview stores a review, or a reply when parent_id names a review of
// the same movie.
func (h *PublicHandler) PostReview(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()
	m, err := h.Movies.GetPublishedByURL(ctx, c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}

	rv := &model.Review{
		Email:      req.Email,
		Name:       req.Name,
		Feedback:   req.Feedback,
		ParentID:   req.ParentID,
		MovieID:    m.ID,
		MovieTitle: m.Title,
	}
	if err := h.Reviews.Create(ctx, rv); err != nil {
		return writeError(c, err)
	}

	ev := queue.ReviewPostedEvent{
		ReviewID: rv.ID,
		MovieID:  m.ID,
		MovieURL: m.URL,
		ParentID: rv.ParentID,
		Name:     rv.Name,
		PostedAt: time.Now().UTC(),
	}
	publish("review.posted", func(ctx context.Context) error {
		return h.Events.PublishReviewPosted(ctx, ev)
	})

	rv.Email = ""
	return c.JSON(http.StatusCreated, rv)
}
