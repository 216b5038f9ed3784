package model

import "time"

// StoreLocation is an aisle or area of the store. SequenceNumber defines the
// walking order across locations; gaps are allowed.
type StoreLocation struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SequenceNumber int       `json:"sequence_number"`
	CreatedAt      time.Time `json:"created_at"`
}
