package blobcache

import (
	"cmp"
	"slices"
)

// DefaultSizeLimit is the total byte budget of the cache
const DefaultSizeLimit int64 = 50 << 20

// Policy keeps the cache at or below Limit bytes by removing the oldest entries first
type Policy struct {
	Limit int64
}

// DefaultPolicy returns the 50 MiB policy
func DefaultPolicy() Policy {
	return Policy{Limit: DefaultSizeLimit}
}

// Plan returns the entries to delete, oldest first.
//
// Entries are ordered by StoredAt and then by insertion sequence. The result is
// the shortest prefix of that order whose removal brings the total to Limit or
// below. A single entry larger than Limit is removed like any other, so the
// remaining total may still exceed Limit only when nothing is left to remove.
func (p Policy) Plan(entries []Entry) []Entry {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	if total <= p.Limit {
		return nil
	}

	ordered := slices.Clone(entries)
	slices.SortStableFunc(ordered, func(a, b Entry) int {
		return cmp.Or(a.StoredAt.Compare(b.StoredAt), cmp.Compare(a.Seq, b.Seq))
	})

	var n int
	for n < len(ordered) && total > p.Limit {
		total -= ordered[n].Size
		n++
	}
	return ordered[:n]
}

// Result summarizes one eviction pass
type Result struct {
	Removed    int
	FreedBytes int64
	TotalBytes int64
}
