// Package store persists the reservation state as named collections of
// JSON records.  A collection is always read and written whole; backends
// differ only in where the array of records lives (a file per collection,
// a MySQL row, a PostgreSQL row).
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names used by the gateway.
const (
	CollectionBookings = "bookings"
	CollectionMovies   = "movies"
	CollectionCinemas  = "cinemas"
)

// ErrCollectionNotFound is returned by ReadCollection when the named
// collection has never been written.  The gateway treats it as empty.
var ErrCollectionNotFound = errors.New("collection not found")

// Collections is the storage collaborator behind the gateway.
// WriteCollection replaces the collection atomically: a reader sees either
// the previous records or the new ones, never a mix.
type Collections interface {
	ReadCollection(ctx context.Context, name string) ([]json.RawMessage, error)
	WriteCollection(ctx context.Context, name string, records []json.RawMessage) error
}

func decodeArray(body []byte) ([]json.RawMessage, error) {
	if len(body) == 0 {
		return []json.RawMessage{}, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

func encodeArray(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	return json.MarshalIndent(records, "", "  ")
}
