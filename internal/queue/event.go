// Package queue defines the catalog events carried over RabbitMQ and the
// consumer that records them.
package queue

import "time"

// Queue names. Both queues are durable and fed through the default
// exchange.
const (
	RatingSubmittedQueue = "catalog.rating.submitted"
	ReviewPostedQueue    = "catalog.review.posted"
)

// RatingSubmittedEvent is published after a visitor votes on a movie.
// Created is false when the vote replaced an earlier one from the same
// address.
type RatingSubmittedEvent struct {
	MovieID     uint64    `json:"movie_id"`
	MovieURL    string    `json:"movie_url"`
	StarID      uint64    `json:"star_id"`
	StarValue   int16     `json:"star_value"`
	IP          string    `json:"ip"`
	Created     bool      `json:"created"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ReviewPostedEvent is published after a review or reply is stored. The
// email address is deliberately left out.
type ReviewPostedEvent struct {
	ReviewID uint64    `json:"review_id"`
	MovieID  uint64    `json:"movie_id"`
	MovieURL string    `json:"movie_url"`
	ParentID *uint64   `json:"parent_id,omitempty"`
	Name     string    `json:"name"`
	PostedAt time.Time `json:"posted_at"`
}
