package domain

import "time"

// Chapter is a unit of narratable content owned by a book.
// AudioURL and AudioDurationSeconds are nil until a synthesis job completes;
// they are written only by the job store's completed transition and are never
// cleared by a failed regeneration.
type Chapter struct {
	ID       string `json:"id"`
	BookID   string `json:"book_id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Content  string `json:"content"`

	AudioURL             *string `json:"audio_url,omitempty"`
	AudioDurationSeconds *int    `json:"audio_duration_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAudio reports whether the chapter has a published narration.
func (c *Chapter) HasAudio() bool {
	return c.AudioURL != nil && *c.AudioURL != ""
}
