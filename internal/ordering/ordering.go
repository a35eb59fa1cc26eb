// Package ordering implements sibling-ordering byte sequences: a
// non-empty byte sequence, compared lexicographically, used to position
// an item among its siblings under a container.
package ordering

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/infumap/storage-core/internal/errs"
)

// Ordering is a non-empty sequence of bytes (0-255), compared
// lexicographically to determine sibling order.
type Ordering []byte

// MarshalJSON encodes an Ordering as a JSON array of small integers rather
// than Go's default []byte-as-base64-string, matching the kv-log's
// human-diffable on-disk record shape.
func (o Ordering) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(o))
	for idx, b := range o {
		ints[idx] = int(b)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON decodes a JSON array of integers (0-255) into an Ordering.
func (o *Ordering) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	result := make(Ordering, len(ints))
	for idx, v := range ints {
		if v < 0 || v > 255 {
			return errs.New(errs.CorruptLog, "ordering byte %d out of range", v)
		}
		result[idx] = byte(v)
	}
	*o = result
	return nil
}

// step is the amount a new ordering's incremented byte advances by.
const step = 1

// New returns the default ordering for the first child of a container.
func New() Ordering {
	return Ordering{128}
}

// Check returns an InvalidArg error if o is empty.
func Check(o Ordering) error {
	if len(o) == 0 {
		return errs.New(errs.InvalidArg, "ordering must not be empty")
	}
	return nil
}

// Compare implements lexicographic byte-sequence comparison.
func Compare(a, b Ordering) int {
	return bytes.Compare(a, b)
}

// Max returns the lexicographically greatest ordering in orderings. Panics
// if orderings is empty; callers must not invoke Max on an empty sibling set.
func Max(orderings []Ordering) Ordering {
	max := orderings[0]
	for _, o := range orderings[1:] {
		if Compare(o, max) > 0 {
			max = o
		}
	}
	return max
}

// NewAfter derives an ordering strictly greater than end, by incrementing
// end's first non-saturated byte by step, carrying any saturated (0xff)
// leading bytes through unchanged, or appending a fresh step-valued byte if
// every byte in end is saturated.
func NewAfter(end Ordering) Ordering {
	result := make(Ordering, 0, len(end)+1)
	for _, b := range end {
		if b == 255 {
			result = append(result, 255)
			continue
		}
		if b > 255-step {
			result = append(result, b+1)
		} else {
			result = append(result, b+step)
		}
		return result
	}
	result = append(result, step)
	return result
}

// NextSibling picks an ordering for a new sibling given the orderings of its
// current siblings (possibly none).
func NextSibling(siblings []Ordering) Ordering {
	if len(siblings) == 0 {
		return New()
	}
	return NewAfter(Max(siblings))
}

// Sort orders a slice of (id, ordering) pairs by ordering, ascending.
// Exposed for callers (e.g. get_children) that need deterministic order.
func Sort[T any](items []T, key func(T) Ordering) {
	sort.SliceStable(items, func(i, j int) bool {
		return Compare(key(items[i]), key(items[j])) < 0
	})
}
