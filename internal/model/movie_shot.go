package model

// MovieShot is a still from a movie. Stills are deleted with their movie.
type MovieShot struct {
	ID          uint64 `json:"id"`                                // movie_shots.id
	Title       string `json:"title" validate:"required,max=100"` // movie_shots.title
	Description string `json:"description" validate:"max=255"`    // movie_shots.description
	Image       string `json:"image" validate:"max=255"`          // movie_shots.image, file reference
	MovieID     uint64 `json:"movie_id" validate:"required"`      // movie_shots.movie_id
}

func (s MovieShot) String() string { return s.Title }
