package model

import (
	"fmt"
	"sort"
)

// Review is visitor feedback on a movie. A review may answer another review
// of the same movie through ParentID; deleting the parent keeps the reply
// and clears its ParentID.
type Review struct {
	ID       uint64  `json:"id"`                                                // reviews.id
	Email    string  `json:"email,omitempty" validate:"required,email,max=254"` // reviews.email, hidden from public views
	Name     string  `json:"name" validate:"required,max=100"`                  // reviews.name
	Feedback string  `json:"feedback" validate:"required,max=1000"`             // reviews.feedback
	ParentID *uint64 `json:"parent_id,omitempty"`                               // reviews.parent_id (nullable)
	MovieID  uint64  `json:"movie_id" validate:"required"`                      // reviews.movie_id

	MovieTitle string `json:"-"`
}

func (r Review) String() string {
	return fmt.Sprintf(":%s - %s", r.Name, r.MovieTitle)
}

// ReviewNode is a review with its direct replies.
type ReviewNode struct {
	Review
	Replies []*ReviewNode `json:"replies"`
}

// BuildReviewTree nests replies under their parents. A review becomes a root
// when its parent is unset or not in the slice. Reviews on a parent loop,
// which the schema cannot produce through the API, are also kept as roots.
// Roots and siblings are ordered by id.
func BuildReviewTree(reviews []Review) []*ReviewNode {
	sorted := make([]Review, len(reviews))
	copy(sorted, reviews)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	nodes := make(map[uint64]*ReviewNode, len(sorted))
	for _, r := range sorted {
		nodes[r.ID] = &ReviewNode{Review: r, Replies: []*ReviewNode{}}
	}
	roots := []*ReviewNode{}
	for _, r := range sorted {
		n := nodes[r.ID]
		if r.ParentID != nil && !onLoop(nodes, r.ID) {
			if p, ok := nodes[*r.ParentID]; ok {
				p.Replies = append(p.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// onLoop reports whether following parents from id leads back to id.
func onLoop(nodes map[uint64]*ReviewNode, id uint64) bool {
	cur := nodes[id]
	for i := 0; i < len(nodes); i++ {
		if cur.ParentID == nil {
			return false
		}
		next, ok := nodes[*cur.ParentID]
		if !ok {
			return false
		}
		if next.ID == id {
			return true
		}
		cur = next
	}
	return false
}
