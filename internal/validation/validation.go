// Package validation holds the structural rules an Item must satisfy
// before it may be added to or updated within an owner's item log:
// parent-type compatibility, relationship-to-parent discipline, and the
// root-item self-reference rule.
package validation

import (
	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/ordering"
	"github.com/infumap/storage-core/internal/types"
)

// ParentLookup resolves a parent Uid to its Item, or reports it absent.
// ItemDb supplies this from its in-memory index so validation never
// touches the log directly.
type ParentLookup func(id types.Uid) (*types.Item, bool)

// CheckStructure validates item's structural invariants: parent-type
// compatibility (only placeholder items may be attachments), ordering
// well-formedness, and owner match with the parent. It does not check
// authorization; callers run that separately.
func CheckStructure(item *types.Item, lookupParent ParentLookup) error {
	if item.IsRoot() {
		if item.RelationshipToParent != types.RelNoParent {
			return errs.New(errs.InvalidArg, "item %s: self-referencing root item must have relationship_to_parent = no-parent", item.Id)
		}
		return nil
	}

	if item.ParentId == types.EmptyUid {
		return errs.New(errs.InvalidArg, "item %s: non-root item must have a parent_id", item.Id)
	}
	if item.RelationshipToParent == types.RelNoParent {
		return errs.New(errs.InvalidArg, "item %s: non-root item cannot have relationship_to_parent = no-parent", item.Id)
	}
	if !item.RelationshipToParent.Valid() {
		return errs.New(errs.InvalidArg, "item %s: invalid relationship_to_parent %q", item.Id, item.RelationshipToParent)
	}

	parent, ok := lookupParent(item.ParentId)
	if !ok {
		return errs.New(errs.ParentMissing, "item %s: parent %s does not exist", item.Id, item.ParentId)
	}

	switch item.RelationshipToParent {
	case types.RelChild:
		if !parent.ItemType.IsContainer() {
			return errs.New(errs.InvalidArg, "item %s: parent %s (type %s) is not a container, cannot hold child items", item.Id, parent.Id, parent.ItemType)
		}
	case types.RelAttachment:
		if !parent.ItemType.IsAttachmentsCapable() {
			return errs.New(errs.InvalidArg, "item %s: parent %s (type %s) cannot hold attachments", item.Id, parent.Id, parent.ItemType)
		}
		if item.ItemType != types.Placeholder {
			return errs.New(errs.InvalidArg, "item %s: only placeholder items may be attachments, got %s", item.Id, item.ItemType)
		}
	}

	if parent.OwnerId != item.OwnerId {
		return errs.New(errs.InvalidArg, "item %s: owner %s does not match parent %s owner %s", item.Id, item.OwnerId, parent.Id, parent.OwnerId)
	}

	if err := ordering.Check(item.Ordering); err != nil {
		return err
	}

	return nil
}
