// Package metadata stores the per-fragment records aligned with the
// vector index by ordinal: record i describes the vector at row i.
package metadata

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Record is the payload returned with a search hit.
type Record struct {
	// Text is the fragment text that was embedded.
	Text string `json:"text"`

	// Attributes carries the fragment attributes (source, chunk, ...).
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ErrOrdinalOutOfRange indicates a lookup past the end of the store.
type ErrOrdinalOutOfRange struct {
	Ordinal int
	Count   int
}

func (e *ErrOrdinalOutOfRange) Error() string {
	return fmt.Sprintf("metadata: ordinal out of range: ordinal=%d, count=%d", e.Ordinal, e.Count)
}

// Store holds records in append order and maintains an inverted index
// over attribute key/value pairs for filtered search.
//
// Store is not safe for concurrent mutation; the engine swaps in a fully
// built store and only reads it afterwards.
type Store struct {
	records  []Record
	postings map[string]*roaring.Bitmap
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{postings: make(map[string]*roaring.Bitmap)}
}

// FromRecords creates a store holding the given records, rebuilding the
// attribute postings. Used when restoring a persisted snapshot.
func FromRecords(records []Record) *Store {
	s := NewStore()
	s.Append(records)

	return s
}

// Append adds records in order, assigning them the next ordinals.
func (s *Store) Append(records []Record) {
	for _, r := range records {
		ord := uint32(len(s.records))
		s.records = append(s.records, r)

		for k, v := range r.Attributes {
			pk := postingKey(k, v)

			bm, ok := s.postings[pk]
			if !ok {
				bm = roaring.New()
				s.postings[pk] = bm
			}

			bm.Add(ord)
		}
	}
}

// Get returns the record at the given ordinal.
func (s *Store) Get(ordinal int) (Record, error) {
	if ordinal < 0 || ordinal >= len(s.records) {
		return Record{}, &ErrOrdinalOutOfRange{Ordinal: ordinal, Count: len(s.records)}
	}

	return s.records[ordinal], nil
}

// Count returns the number of records.
func (s *Store) Count() int {
	return len(s.records)
}

// Records returns the backing record slice. Callers must not mutate it.
func (s *Store) Records() []Record {
	return s.records
}

// postingKey joins key and value with a separator that cannot occur in
// either, keeping ("a", "bc") distinct from ("ab", "c").
func postingKey(key, value string) string {
	return key + "\x1f" + value
}
