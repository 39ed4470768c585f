package metadata

import "github.com/RoaringBitmap/roaring/v2"

// Filter restricts a search to records whose attribute Key equals Value.
type Filter struct {
	Key   string
	Value string
}

// Eq creates an equality filter.
func Eq(key, value string) Filter {
	return Filter{Key: key, Value: value}
}

// FilterFunc compiles the filters into an ordinal predicate for the
// index scan, AND-combining them through the attribute postings. It
// returns nil when no filters are given, letting the scan skip the
// predicate entirely.
func (s *Store) FilterFunc(filters ...Filter) func(uint32) bool {
	if len(filters) == 0 {
		return nil
	}

	var acc *roaring.Bitmap

	for _, f := range filters {
		bm, ok := s.postings[postingKey(f.Key, f.Value)]
		if !ok {
			return func(uint32) bool { return false }
		}

		if acc == nil {
			acc = bm.Clone()
		} else {
			acc.And(bm)
		}
	}

	if acc.IsEmpty() {
		return func(uint32) bool { return false }
	}

	return acc.Contains
}
