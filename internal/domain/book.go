// Package domain defines the core entities of the Chapterly server.
package domain

import "time"

// Book is the owning aggregate for chapters. Authorization for audio
// generation is keyed on the book's owner.
type Book struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
