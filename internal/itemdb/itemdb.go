// Package itemdb implements the per-owner item database: an append-only
// item log plus the in-memory indexes (owner-of-item is implicit, one
// ItemDb per owner, children-of-parent and attachments-of-parent) that
// make tree traversal and authorization checks O(1) instead of O(n) scans
// over the log.
package itemdb

import (
	"sync"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/kvlog"
	"github.com/infumap/storage-core/internal/ordering"
	"github.com/infumap/storage-core/internal/types"
	"github.com/infumap/storage-core/internal/validation"
)

// PermissionPublic is the permission_flags bit a page sets to make its
// direct children visible to users other than its owner. Authorization
// only looks one level up the parent chain (depth-capped at 1), so a
// publicly shared page does not transitively expose items nested two or
// more containers below it.
const PermissionPublic int64 = 1 << 0

const logVersion = 1

// ItemDb holds one owner's items: the log of record plus indexes derived
// from it. All mutating methods hold a single mutex, matching the
// process-wide single-writer discipline the storage core uses for every
// collection.
type ItemDb struct {
	mu      sync.Mutex
	ownerId types.Uid
	log     *kvlog.Log[types.Item, *types.Item]

	childrenOf    map[types.Uid][]types.Uid
	attachmentsOf map[types.Uid][]types.Uid

	dirty bool
}

// Open loads or creates the item log at path for ownerId and rebuilds the
// children/attachments indexes from the replayed state.
func Open(path string, ownerId types.Uid) (*ItemDb, error) {
	log, err := kvlog.Open[types.Item, *types.Item](path, "item", logVersion, types.ItemFromJSON)
	if err != nil {
		return nil, err
	}
	db := &ItemDb{
		ownerId:       ownerId,
		log:           log,
		childrenOf:    make(map[types.Uid][]types.Uid),
		attachmentsOf: make(map[types.Uid][]types.Uid),
	}
	for _, item := range log.All() {
		db.indexInsert(item)
	}
	return db, nil
}

func (db *ItemDb) indexInsert(item *types.Item) {
	if item.IsRoot() {
		// a root item is indexed as a child of itself, so Children(root.Id)
		// yields it directly instead of requiring a special case at every
		// call site.
		db.childrenOf[item.Id] = append(db.childrenOf[item.Id], item.Id)
		return
	}
	switch item.RelationshipToParent {
	case types.RelChild:
		db.childrenOf[item.ParentId] = append(db.childrenOf[item.ParentId], item.Id)
	case types.RelAttachment:
		db.attachmentsOf[item.ParentId] = append(db.attachmentsOf[item.ParentId], item.Id)
	}
}

func (db *ItemDb) indexRemove(item *types.Item) {
	remove := func(s []types.Uid, id types.Uid) []types.Uid {
		out := s[:0]
		for _, v := range s {
			if v != id {
				out = append(out, v)
			}
		}
		return out
	}
	switch item.RelationshipToParent {
	case types.RelChild:
		db.childrenOf[item.ParentId] = remove(db.childrenOf[item.ParentId], item.Id)
	case types.RelAttachment:
		db.attachmentsOf[item.ParentId] = remove(db.attachmentsOf[item.ParentId], item.Id)
	}
}

func (db *ItemDb) lookup(id types.Uid) (*types.Item, bool) {
	return db.log.Get(id)
}

// Add validates item's structure against its parent and the owner it
// claims, then appends it to the log and updates the indexes.
func (db *ItemDb) Add(item *types.Item) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if item.OwnerId != db.ownerId {
		return errs.New(errs.InvalidArg, "item %s: owner_id %s does not match this item database's owner %s", item.Id, item.OwnerId, db.ownerId)
	}
	if err := validation.CheckStructure(item, db.lookup); err != nil {
		return err
	}
	if err := db.log.Add(item); err != nil {
		return err
	}
	db.indexInsert(item)
	db.dirty = true
	return nil
}

// Update validates the new state's structure, then diffs and appends only
// the changed fields.
func (db *ItemDb) Update(item *types.Item) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	old, ok := db.lookup(item.Id)
	if !ok {
		return errs.New(errs.NotFound, "item %s not found", item.Id)
	}
	if item.OwnerId != old.OwnerId {
		return errs.New(errs.InvalidArg, "item %s: owner_id is immutable", item.Id)
	}
	if err := validation.CheckStructure(item, func(id types.Uid) (*types.Item, bool) {
		if id == item.Id {
			return nil, false // an item cannot be its own parent lookup target mid-move
		}
		return db.lookup(id)
	}); err != nil {
		return err
	}

	movedParent := old.ParentId != item.ParentId || old.RelationshipToParent != item.RelationshipToParent
	// log.Update applies the diff to the stored item in place, so keep a
	// copy of its pre-update state for removing it from the old indexes.
	prev := *old
	if err := db.log.Update(item); err != nil {
		return err
	}
	if movedParent {
		db.indexRemove(&prev)
		db.indexInsert(item)
	}
	db.dirty = true
	return nil
}

// Remove deletes id, refusing to do so if id is a root item, or while it
// still owns children or attachments (callers must remove or reparent
// those first).
func (db *ItemDb) Remove(id types.Uid) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	item, ok := db.lookup(id)
	if !ok {
		return errs.New(errs.NotFound, "item %s not found", id)
	}
	if item.IsRoot() {
		return errs.New(errs.InvalidArg, "item %s is a root item and cannot be removed", id)
	}
	if len(db.childrenOf[id]) > 0 || len(db.attachmentsOf[id]) > 0 {
		return errs.New(errs.InvalidArg, "item %s still has children or attachments, remove those first", id)
	}
	if err := db.log.Remove(id); err != nil {
		return err
	}
	db.indexRemove(item)
	delete(db.childrenOf, id)
	delete(db.attachmentsOf, id)
	db.dirty = true
	return nil
}

// Get returns the item for id, if present.
func (db *ItemDb) Get(id types.Uid) (*types.Item, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.lookup(id)
}

// Children returns id's child items ordered by their Ordering field.
func (db *ItemDb) Children(id types.Uid) []*types.Item {
	return db.collect(id, db.childrenOf)
}

// Attachments returns id's attachment items ordered by their Ordering field.
func (db *ItemDb) Attachments(id types.Uid) []*types.Item {
	return db.collect(id, db.attachmentsOf)
}

func (db *ItemDb) collect(id types.Uid, index map[types.Uid][]types.Uid) []*types.Item {
	db.mu.Lock()
	ids := append([]types.Uid(nil), index[id]...)
	db.mu.Unlock()

	out := make([]*types.Item, 0, len(ids))
	for _, cid := range ids {
		if item, ok := db.lookup(cid); ok {
			out = append(out, item)
		}
	}
	ordering.Sort(out, func(it *types.Item) ordering.Ordering { return it.Ordering })
	return out
}

// NextChildOrdering returns the ordering value a new child of parentId
// should use to be sorted last among its current siblings.
func (db *ItemDb) NextChildOrdering(parentId types.Uid) ordering.Ordering {
	children := db.Children(parentId)
	orderings := make([]ordering.Ordering, len(children))
	for idx, c := range children {
		orderings[idx] = c.Ordering
	}
	return ordering.NextSibling(orderings)
}

// Authorize reports whether actor may read itemId. actor is authorized if
// any of the following hold:
//  1. actor owns itemId directly.
//  2. itemId is itself a page with PermissionPublic set.
//  3. itemId's parent is a page with PermissionPublic set (child relationship).
//  4. itemId's parent is a composite: authorize the composite instead,
//     recursing one level (so the composite's own parent page still counts).
//  5. itemId's parent is a table whose own parent is a public page.
//  6. itemId is an attachment of a page (or of an item in a public page or
//     public-page table) that is or resolves to a public page.
//
// Recursion is capped at one level, so a publicly shared page exposes its
// direct children, composites-of-children, and tables-of-children, but
// never anything nested two or more containers below it.
func (db *ItemDb) Authorize(actor types.Uid, itemId types.Uid) bool {
	item, ok := db.Get(itemId)
	if !ok {
		return false
	}
	return db.authorizeItem(actor, item, 0)
}

func (db *ItemDb) authorizeItem(actor types.Uid, item *types.Item, recursionLevel int) bool {
	if recursionLevel > 1 {
		return false
	}
	if item.OwnerId == actor {
		return true
	}
	if item.ItemType.IsPage() && item.PermissionFlags != nil && *item.PermissionFlags&PermissionPublic != 0 {
		return true
	}
	if item.IsRoot() {
		return false
	}
	parent, ok := db.Get(item.ParentId)
	if !ok {
		return false
	}
	switch item.RelationshipToParent {
	case types.RelChild:
		if parent.ItemType == types.Composite {
			return db.authorizeItem(actor, parent, recursionLevel+1)
		}
		return db.itemAuthCommon(parent)
	case types.RelAttachment:
		if db.itemAuthCommon(parent) {
			return true
		}
		if parent.IsRoot() {
			return false
		}
		grandparent, ok := db.Get(parent.ParentId)
		if !ok {
			return false
		}
		return db.itemAuthCommon(grandparent)
	default:
		return false
	}
}

// itemAuthCommon decides whether childId (implicit via the caller) is
// authorized through parent: parent is a public page, or parent is a
// table whose own parent is a public page.
func (db *ItemDb) itemAuthCommon(parent *types.Item) bool {
	if parent.ItemType.IsPage() {
		return parent.PermissionFlags != nil && *parent.PermissionFlags&PermissionPublic != 0
	}
	if parent.ItemType != types.Table || parent.IsRoot() {
		return false
	}
	grandparent, ok := db.Get(parent.ParentId)
	if !ok || !grandparent.ItemType.IsPage() {
		return false
	}
	return grandparent.PermissionFlags != nil && *grandparent.PermissionFlags&PermissionPublic != 0
}

// ContentHash XORs the ContentHash of every item this ItemDb holds.
func (db *ItemDb) ContentHash() (uint64, error) {
	var hashes []uint64
	for _, item := range db.log.All() {
		h, err := item.ContentHash()
		if err != nil {
			return 0, err
		}
		hashes = append(hashes, h)
	}
	return types.CombineContentHashes(hashes), nil
}

// Dirty reports whether any mutation has occurred since the last call to
// ClearDirty; callers use this to decide whether a user's total content
// hash needs recomputing.
func (db *ItemDb) Dirty() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.dirty
}

func (db *ItemDb) ClearDirty() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.dirty = false
}

// Close releases the underlying log's file handle and lock.
func (db *ItemDb) Close() error { return db.log.Close() }

// All returns every item this ItemDb holds, unordered. Exposed for
// migration, search-index rebuild, and backup.
func (db *ItemDb) All() []*types.Item { return db.log.All() }
