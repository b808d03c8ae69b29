package model

import (
	"fmt"
	"strconv"
)

// RatingStar is one allowed vote value, typically 1 to 5.
type RatingStar struct {
	ID    uint64 `json:"id"`    // rating_stars.id
	Value int16  `json:"value"` // rating_stars.value
}

func (s RatingStar) String() string { return strconv.Itoa(int(s.Value)) }

// Rating is a single visitor's vote on a movie, keyed by IPv4 address. The
// (ip, movie_id) pair is unique.
type Rating struct {
	ID      uint64 `json:"id"`                                 // ratings.id
	IP      string `json:"ip" validate:"required,ipv4,max=15"` // ratings.ip
	StarID  uint64 `json:"star_id" validate:"required"`        // ratings.star_id
	MovieID uint64 `json:"movie_id" validate:"required"`       // ratings.movie_id

	// Joined for display.
	StarValue  int16  `json:"star_value"`
	MovieTitle string `json:"movie_title,omitempty"`
}

func (r Rating) String() string {
	return fmt.Sprintf(":%d - %s", r.StarValue, r.MovieTitle)
}

// RatingSummary aggregates the votes of one movie.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}
