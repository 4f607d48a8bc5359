// Package storage publishes finished narration artifacts.
package storage

import "context"

// AudioStore persists a chapter's assembled narration and returns its
// public URL. Publishing the same chapter again overwrites the previous
// artifact; the URL stays stable across regenerations.
type AudioStore interface {
	Publish(ctx context.Context, chapterID string, audio []byte) (string, error)
	Delete(ctx context.Context, chapterID string) error
}
