package models

import "time"

// MessageEvent is the slice of a chat message the scorer looks at.
// It is fetched fresh on every scoring pass and never stored.
type MessageEvent struct {
	AuthorID  string
	IsBot     bool
	CreatedAt time.Time
}
