package objectstore

import "context"

// backend is one of the store's fan-out targets: the local filesystem, or
// one of up to two S3-compatible object stores. filename(ownerId, itemId)
// is the same across every backend: "{owner_id}_{item_id}".
type backend interface {
	name() string
	get(ctx context.Context, filename string) ([]byte, error)
	put(ctx context.Context, filename string, data []byte) error
	delete(ctx context.Context, filename string) error
}

func filename(ownerId, itemId string) string {
	return ownerId + "_" + itemId
}
