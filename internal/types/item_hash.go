package types

import (
	"github.com/mitchellh/hashstructure/v2"

	"github.com/infumap/storage-core/internal/errs"
)

// ContentHash returns a 64-bit hash of the item's full JSON projection,
// stable across process restarts and independent of map iteration order
// (hashstructure sorts map keys internally). A user's total content hash
// is the XOR of every owned item's ContentHash; XOR is order-independent
// by construction, and ItemDb.ContentHash recomputes it over every item on
// each call.
func (i *Item) ContentHash() (uint64, error) {
	proj, err := i.ToJSON()
	if err != nil {
		return 0, err
	}
	h, err := hashstructure.Hash(proj, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, errs.Wrap(errs.CorruptLog, err, "hashing item %s", i.Id)
	}
	return h, nil
}

// CombineContentHashes XORs a set of per-item content hashes into the
// single value exposed as a user's overall content hash.
func CombineContentHashes(hashes []uint64) uint64 {
	var total uint64
	for _, h := range hashes {
		total ^= h
	}
	return total
}
