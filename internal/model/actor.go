package model

// Actor is a person. The same table backs both the directors and the actors
// of a movie.
type Actor struct {
	ID          uint64 `json:"id"`                               // actors.id
	Name        string `json:"name" validate:"required,max=50"`  // actors.name
	Age         int    `json:"age" validate:"gte=0,lte=32767"`   // actors.age, SMALLINT UNSIGNED
	Description string `json:"description" validate:"max=255"`   // actors.description
	Image       string `json:"image" validate:"max=255"`         // actors.image, file reference
}

func (a Actor) String() string { return a.Name }
