package model

// Genre is a movie genre such as "Drama".
type Genre struct {
	ID          uint64 `json:"id"`                                   // genres.id
	Title       string `json:"title" validate:"required,max=50"`     // genres.title
	Description string `json:"description" validate:"max=255"`       // genres.description
	URL         string `json:"url" validate:"required,max=160,slug"` // genres.url (unique)
}

func (g Genre) String() string { return g.Title }
