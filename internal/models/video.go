package models

import "time"

// Video is a protected training recording. StorageKey is the backing
// object locator handed out only after a playback capability verifies.
type Video struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	StorageKey string    `json:"-"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"created_at"`
}
