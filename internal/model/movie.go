package model

import "time"

// DefaultReleaseYear is stored when a movie is created without a year.
const DefaultReleaseYear = 2022

// Movie is the central catalog record. DirectorIDs, ActorIDs and GenreIDs
// carry the many-to-many link sets; they are written to the join tables
// together with the row.
type Movie struct {
	ID                uint64    `json:"id"`                                         // movies.id
	Title             string    `json:"title" validate:"required,max=100"`          // movies.title
	Tagline           string    `json:"tagline" validate:"max=50"`                  // movies.tagline
	Description       string    `json:"description" validate:"max=255"`             // movies.description
	Poster            string    `json:"poster" validate:"max=255"`                  // movies.poster, file reference
	ReleaseYear       int       `json:"release_year" validate:"gte=0,lte=32767"`    // movies.release_year
	Country           string    `json:"country" validate:"max=50"`                  // movies.country
	WorldPremiereDate time.Time `json:"world_premiere_date"`                        // movies.world_premiere_date (DATE)
	Budget            int64     `json:"budget" validate:"gte=0,lte=4294967295"`     // movies.budget, USD
	FeesUSA           int64     `json:"fees_usa" validate:"gte=0,lte=4294967295"`   // movies.fees_usa, USD
	FeesWorld         int64     `json:"fees_world" validate:"gte=0,lte=4294967295"` // movies.fees_world, USD
	CategoryID        *uint64   `json:"category_id"`                                // movies.category_id (nullable)
	URL               string    `json:"url" validate:"required,max=160,slug"`       // movies.url (unique)
	Draft             bool      `json:"draft"`                                      // movies.draft

	DirectorIDs []uint64 `json:"director_ids,omitempty" validate:"dive,gt=0"`
	ActorIDs    []uint64 `json:"actor_ids,omitempty" validate:"dive,gt=0"`
	GenreIDs    []uint64 `json:"genre_ids,omitempty" validate:"dive,gt=0"`
}

func (m Movie) String() string { return m.Title }

// ApplyDefaults fills the column defaults that depend on creation time.
func (m *Movie) ApplyDefaults(now time.Time) {
	if m.ReleaseYear == 0 {
		m.ReleaseYear = DefaultReleaseYear
	}
	if m.WorldPremiereDate.IsZero() {
		m.WorldPremiereDate = DateOf(now)
	}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// MovieDetail is a published movie with everything its page shows.
type MovieDetail struct {
	Movie
	Category  *Category     `json:"category,omitempty"`
	Directors []Actor       `json:"directors"`
	Actors    []Actor       `json:"actors"`
	Genres    []Genre       `json:"genres"`
	Shots     []MovieShot   `json:"shots"`
	Rating    RatingSummary `json:"rating"`
	Reviews   []*ReviewNode `json:"reviews"`
}
