// Package imagecache implements the on-disk cache of generated image
// derivatives: resized renditions of an original image item, keyed by
// (item id, target size), sharded 256 ways on disk exactly like the blob
// object store's local backend.
package imagecache

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/types"
)

// Size identifies a cached derivative: either the original resolution or
// a specific target pixel width (height follows the item's aspect ratio).
type Size struct {
	Original bool
	WidthPx  int64
}

func (s Size) String() string {
	if s.Original {
		return "orig"
	}
	return strconv.FormatInt(s.WidthPx, 10)
}

// defaults for the approximate-size acceptance band: a cached derivative
// scaled down by no more than this percent, or up by no more than this
// percent, from the requested width is considered close enough to reuse
// rather than regenerate.
const (
	defaultMaxScaleDownPercent = 30
	defaultMaxScaleUpPercent   = 5
)

// BlobFetcher fetches the original, still-encrypted-at-rest-decrypted blob
// for an item. objectstore.Store satisfies this without imagecache having
// to import it, since the object store in turn depends on nothing in this
// package.
type BlobFetcher interface {
	Get(ctx context.Context, ownerId, itemId string) ([]byte, error)
}

// Resizer is the external collaborator that does the actual pixel work:
// EXIF orientation correction, aspect-preserving resize to targetWidthPx,
// and JPEG re-encode at whatever quality it is configured with. Cache
// never decodes or touches image bytes itself.
type Resizer interface {
	Resize(original []byte, targetWidthPx int64) ([]byte, error)
}

// PassthroughResizer is the default Resizer: it returns the original bytes
// unchanged. Real EXIF-aware decode and resize belongs to an external
// image-processing collaborator; this lets Resolve's fill-on-miss path be
// exercised and wired end to end without that dependency.
type PassthroughResizer struct{}

func (PassthroughResizer) Resize(original []byte, _ int64) ([]byte, error) {
	return original, nil
}

// Cache stores (item, size) derivatives on disk, without keeping the
// image bytes themselves in memory. Lookup and DeleteAll see only the
// sizes Put has stored or found stored through this instance: New does
// not scan baseDir, so entries written by an earlier process are reached
// only through Get.
type Cache struct {
	mu      sync.Mutex
	baseDir string

	maxScaleDownPercent int64
	maxScaleUpPercent   int64

	// sizesByItem records, per item, the sizes this Cache has stored or
	// seen already stored via Put; Lookup and DeleteAll consult it instead
	// of listing the shard directory. No eviction runs.
	sizesByItem map[types.Uid][]Size
}

// New constructs a Cache rooted at baseDir, using the given acceptance-band
// percentages (0 selects the defaults).
func New(baseDir string, maxScaleDownPercent, maxScaleUpPercent int64) *Cache {
	if maxScaleDownPercent <= 0 {
		maxScaleDownPercent = defaultMaxScaleDownPercent
	}
	if maxScaleUpPercent <= 0 {
		maxScaleUpPercent = defaultMaxScaleUpPercent
	}
	return &Cache{
		baseDir:             baseDir,
		maxScaleDownPercent: maxScaleDownPercent,
		maxScaleUpPercent:   maxScaleUpPercent,
		sizesByItem:         make(map[types.Uid][]Size),
	}
}

// filename is "{item_id}_{size}_{owner_id_first_8}", matching the original
// implementation's key format; the owner prefix lets delete_all verify
// ownership without needing a companion index file.
func filename(itemId types.Uid, size Size, ownerId types.Uid) string {
	ownerPrefix := string(ownerId)
	if len(ownerPrefix) > 8 {
		ownerPrefix = ownerPrefix[:8]
	}
	return itemId.String() + "_" + size.String() + "_" + ownerPrefix
}

func (c *Cache) shardDir(name string) string {
	prefix := "00"
	if len(name) >= 2 {
		prefix = name[:2]
	}
	return filepath.Join(c.baseDir, prefix)
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.shardDir(name), name)
}

// Get returns the exact cached derivative, if present.
func (c *Cache) Get(itemId types.Uid, size Size, ownerId types.Uid) ([]byte, bool) {
	data, err := os.ReadFile(c.path(filename(itemId, size, ownerId)))
	if err != nil {
		return nil, false
	}
	return data, true
}

// withinBand reports whether candidateWidth is close enough to
// requestedWidth to serve in place of regenerating an exact match.
func (c *Cache) withinBand(requestedWidth, candidateWidth int64) bool {
	if requestedWidth <= 0 || candidateWidth <= 0 {
		return false
	}
	if candidateWidth <= requestedWidth {
		// candidate is smaller (or equal): acceptable if upscaling it to
		// requestedWidth is not more than maxScaleUpPercent, relative to
		// the candidate's own width.
		deficit := (requestedWidth - candidateWidth) * 100 / candidateWidth
		return deficit <= c.maxScaleUpPercent
	}
	// candidate is larger: acceptable if scaling it down to the
	// requested width loses no more than maxScaleDownPercent.
	excess := (candidateWidth - requestedWidth) * 100 / candidateWidth
	return excess <= c.maxScaleDownPercent
}

// Lookup finds the best existing derivative for a requested width: an
// exact match if present, otherwise the closest cached width within the
// acceptance band, preferring a larger (downscalable) candidate over a
// smaller (upscaled, blurrier) one when both are equally close.
func (c *Cache) Lookup(itemId types.Uid, requestedWidth int64, ownerId types.Uid) (Size, []byte, bool) {
	c.mu.Lock()
	candidates := append([]Size(nil), c.sizesByItem[itemId]...)
	c.mu.Unlock()

	var best Size
	var bestDistance int64 = -1
	found := false
	for _, s := range candidates {
		if s.Original {
			continue
		}
		if s.WidthPx == requestedWidth {
			best, found = s, true
			break
		}
		if !c.withinBand(requestedWidth, s.WidthPx) {
			continue
		}
		distance := s.WidthPx - requestedWidth
		if distance < 0 {
			distance = -distance
		}
		if !found || distance < bestDistance || (distance == bestDistance && s.WidthPx > best.WidthPx) {
			best, bestDistance, found = s, distance, true
		}
	}
	if !found {
		return Size{}, nil, false
	}
	data, ok := c.Get(itemId, best, ownerId)
	return best, data, ok
}

// Resolve serves the requested width of itemId, filling the cache on miss.
// If requestedWidth is at least originalWidth, the unmodified original is
// served (fetching and caching it as Size{Original: true} the first time).
// Otherwise an existing derivative within the acceptance band is reused;
// failing that, fetch fetches the original and resize produces exactly
// requestedWidth, which is cached before being returned.
func (c *Cache) Resolve(ctx context.Context, itemId types.Uid, ownerId types.Uid, requestedWidth, originalWidth int64, fetch BlobFetcher, resize Resizer) (Size, []byte, error) {
	if requestedWidth >= originalWidth {
		origSize := Size{Original: true}
		if data, ok := c.Get(itemId, origSize, ownerId); ok {
			return origSize, data, nil
		}
		data, err := fetch.Get(ctx, ownerId.String(), itemId.String())
		if err != nil {
			return Size{}, nil, err
		}
		if err := c.Put(itemId, origSize, ownerId, data); err != nil {
			return Size{}, nil, err
		}
		return origSize, data, nil
	}

	if size, data, ok := c.Lookup(itemId, requestedWidth, ownerId); ok {
		return size, data, nil
	}

	original, err := fetch.Get(ctx, ownerId.String(), itemId.String())
	if err != nil {
		return Size{}, nil, err
	}
	resized, err := resize.Resize(original, requestedWidth)
	if err != nil {
		return Size{}, nil, errs.Wrap(errs.Backend, err, "resizing item %s to width %d", itemId, requestedWidth)
	}
	size := Size{WidthPx: requestedWidth}
	if err := c.Put(itemId, size, ownerId, resized); err != nil {
		return Size{}, nil, err
	}
	return size, resized, nil
}

// Put stores data for (itemId, size, ownerId), using a create-exclusive
// open so that two concurrent derivative-generation requests racing on
// the same key do not corrupt each other: the loser's write is silently
// discarded rather than erroring, since the winner's bytes are equally
// valid for this key.
func (c *Cache) Put(itemId types.Uid, size Size, ownerId types.Uid, data []byte) error {
	name := filename(itemId, size, ownerId)
	dir := c.shardDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.Io, err, "creating image cache shard dir %s", dir)
	}
	f, err := os.OpenFile(c.path(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			c.recordSize(itemId, size)
			return nil
		}
		return errs.Wrap(errs.Io, err, "creating image cache entry %s", name)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return errs.Wrap(errs.Io, err, "writing image cache entry %s", name)
	}
	c.recordSize(itemId, size)
	return nil
}

func (c *Cache) recordSize(itemId types.Uid, size Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sizesByItem[itemId] {
		if s == size {
			return
		}
	}
	c.sizesByItem[itemId] = append(c.sizesByItem[itemId], size)
}

// DeleteAll removes every cached derivative for itemId, verifying the
// owner suffix on each filename before removing it so a collision across
// owners (vanishingly unlikely given the 8-hex-char prefix, but not
// impossible) cannot delete another owner's cache entry.
func (c *Cache) DeleteAll(itemId types.Uid, ownerId types.Uid) error {
	c.mu.Lock()
	sizes := append([]Size(nil), c.sizesByItem[itemId]...)
	delete(c.sizesByItem, itemId)
	c.mu.Unlock()

	ownerPrefix := string(ownerId)
	if len(ownerPrefix) > 8 {
		ownerPrefix = ownerPrefix[:8]
	}
	for _, s := range sizes {
		name := filename(itemId, s, ownerId)
		if !strings.HasSuffix(name, "_"+ownerPrefix) {
			continue
		}
		if err := os.Remove(c.path(name)); err != nil && !os.IsNotExist(err) {
			return errs.Wrap(errs.Io, err, "deleting image cache entry %s", name)
		}
	}
	return nil
}
