package itemdb

import (
	"path/filepath"
	"testing"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/ordering"
	"github.com/infumap/storage-core/internal/types"
)

func newPage(id, owner, parent types.Uid, rel types.RelationshipToParent) *types.Item {
	title := "page"
	w := int64(1000)
	flags := int64(0)
	orderBy := "position"
	innerW := int64(1000)
	alg := "grid"
	perm := int64(0)
	grid := int64(10)
	gridAspect := 1.0
	docW := int64(800)
	justified := 1.5
	bg := int64(0)
	aspect := 1.0
	cols := int64(1)
	return &types.Item{
		Id: id, OwnerId: owner, ParentId: parent, RelationshipToParent: rel,
		Ordering: ordering.New(), ItemType: types.Page,
		SpatialPositionGr: &types.Vector{}, SpatialWidthGr: &w,
		Title: &title, OrderChildrenBy: &orderBy, Flags: &flags,
		BackgroundColorIndex: &bg, NaturalAspect: &aspect,
		NumberOfVisibleColumns: &cols,
		InnerSpatialWidthGr: &innerW, ArrangeAlgorithm: &alg, PermissionFlags: &perm,
		GridNumberOfColumns: &grid, GridCellAspect: &gridAspect,
		DocWidthBl: &docW, JustifiedRowAspect: &justified,
	}
}

func newTable(id, owner, parent types.Uid, rel types.RelationshipToParent) *types.Item {
	title := "table"
	w := int64(400)
	h := int64(600)
	flags := int64(0)
	orderBy := "position"
	cols := int64(2)
	return &types.Item{
		Id: id, OwnerId: owner, ParentId: parent, RelationshipToParent: rel,
		Ordering: ordering.New(), ItemType: types.Table,
		SpatialPositionGr: &types.Vector{}, SpatialWidthGr: &w, SpatialHeightGr: &h,
		Title: &title, Flags: &flags, OrderChildrenBy: &orderBy,
		NumberOfVisibleColumns: &cols,
	}
}

func newComposite(id, owner, parent types.Uid, rel types.RelationshipToParent) *types.Item {
	w := int64(400)
	orderBy := "position"
	flags := int64(0)
	return &types.Item{
		Id: id, OwnerId: owner, ParentId: parent, RelationshipToParent: rel,
		Ordering: ordering.New(), ItemType: types.Composite,
		SpatialPositionGr: &types.Vector{}, SpatialWidthGr: &w,
		OrderChildrenBy: &orderBy, Flags: &flags,
	}
}

func newAttachment(id, owner, parent types.Uid) *types.Item {
	return &types.Item{
		Id: id, OwnerId: owner, ParentId: parent, RelationshipToParent: types.RelAttachment,
		Ordering: ordering.New(), ItemType: types.Placeholder,
	}
}

func newNote(id, owner, parent types.Uid) *types.Item {
	title := "n"
	url := "https://example.com"
	w := int64(100)
	flags := int64(0)
	format := ""
	return &types.Item{
		Id: id, OwnerId: owner, ParentId: parent, RelationshipToParent: types.RelChild,
		Ordering: ordering.New(), ItemType: types.Note,
		SpatialPositionGr: &types.Vector{}, SpatialWidthGr: &w,
		Title: &title, Flags: &flags, Format: &format, Url: &url,
	}
}

func openTestDb(t *testing.T, owner types.Uid) *ItemDb {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "items.jsonl"), owner)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddRootThenChild(t *testing.T) {
	owner := types.NewUid()
	db := openTestDb(t, owner)

	root := newPage(owner, owner, owner, types.RelNoParent)
	if err := db.Add(root); err != nil {
		t.Fatalf("Add root: %v", err)
	}

	child := newNote(types.NewUid(), owner, owner)
	if err := db.Add(child); err != nil {
		t.Fatalf("Add child: %v", err)
	}

	// a root item is indexed as a child of itself, so Children(root) yields
	// the root alongside its real children.
	children := db.Children(owner)
	if len(children) != 2 {
		t.Fatalf("expected root plus one child, got %v", children)
	}
	var sawRoot, sawChild bool
	for _, c := range children {
		switch c.Id {
		case root.Id:
			sawRoot = true
		case child.Id:
			sawChild = true
		}
	}
	if !sawRoot || !sawChild {
		t.Fatalf("expected both root and child in children list, got %v", children)
	}
}

func TestRemoveRootRefused(t *testing.T) {
	owner := types.NewUid()
	db := openTestDb(t, owner)
	root := newPage(owner, owner, owner, types.RelNoParent)
	db.Add(root)

	if err := db.Remove(owner); !errs.Is(err, errs.InvalidArg) {
		t.Fatalf("expected InvalidArg removing a root item, got %v", err)
	}
}

func TestRemoveWithChildrenRefused(t *testing.T) {
	owner := types.NewUid()
	db := openTestDb(t, owner)
	root := newPage(owner, owner, owner, types.RelNoParent)
	db.Add(root)
	parent := newPage(types.NewUid(), owner, owner, types.RelChild)
	db.Add(parent)
	child := newNote(types.NewUid(), owner, parent.Id)
	db.Add(child)

	if err := db.Remove(parent.Id); !errs.Is(err, errs.InvalidArg) {
		t.Fatalf("expected InvalidArg removing an item with children, got %v", err)
	}
}

func TestAuthorizeDepthCappedAtOne(t *testing.T) {
	owner := types.NewUid()
	other := types.NewUid()
	db := openTestDb(t, owner)

	root := newPage(owner, owner, owner, types.RelNoParent)
	*root.PermissionFlags = PermissionPublic
	db.Add(root)

	child := newPage(types.NewUid(), owner, owner, types.RelChild)
	db.Add(child)

	grandchild := newNote(types.NewUid(), owner, child.Id)
	db.Add(grandchild)

	if !db.Authorize(other, child.Id) {
		t.Fatalf("expected public root to authorize direct child")
	}
	if db.Authorize(other, grandchild.Id) {
		t.Fatalf("expected authorization to NOT extend past depth 1")
	}
}

func TestAuthorizeItemItselfPublicPage(t *testing.T) {
	owner := types.NewUid()
	other := types.NewUid()
	db := openTestDb(t, owner)

	root := newPage(owner, owner, owner, types.RelNoParent)
	db.Add(root)

	page := newPage(types.NewUid(), owner, owner, types.RelChild)
	*page.PermissionFlags = PermissionPublic
	db.Add(page)

	if !db.Authorize(other, page.Id) {
		t.Fatalf("expected a page that is itself public to authorize directly")
	}
}

func TestAuthorizeChildOfTableWhoseParentIsPublicPage(t *testing.T) {
	owner := types.NewUid()
	other := types.NewUid()
	db := openTestDb(t, owner)

	root := newPage(owner, owner, owner, types.RelNoParent)
	*root.PermissionFlags = PermissionPublic
	db.Add(root)

	table := newTable(types.NewUid(), owner, owner, types.RelChild)
	db.Add(table)

	row := newNote(types.NewUid(), owner, table.Id)
	db.Add(row)

	if !db.Authorize(other, row.Id) {
		t.Fatalf("expected a child of a table whose parent is a public page to be authorized")
	}
}

func TestAuthorizeChildOfCompositeRecursesOneLevel(t *testing.T) {
	owner := types.NewUid()
	other := types.NewUid()
	db := openTestDb(t, owner)

	root := newPage(owner, owner, owner, types.RelNoParent)
	*root.PermissionFlags = PermissionPublic
	db.Add(root)

	composite := newComposite(types.NewUid(), owner, owner, types.RelChild)
	db.Add(composite)

	member := newNote(types.NewUid(), owner, composite.Id)
	db.Add(member)

	if !db.Authorize(other, member.Id) {
		t.Fatalf("expected a child of a composite under a public page to be authorized")
	}
}

func TestAuthorizeAttachmentViaParentOrGrandparent(t *testing.T) {
	owner := types.NewUid()
	other := types.NewUid()
	db := openTestDb(t, owner)

	root := newPage(owner, owner, owner, types.RelNoParent)
	*root.PermissionFlags = PermissionPublic
	db.Add(root)

	// directly attached to the public root page.
	directAttachment := newAttachment(types.NewUid(), owner, owner)
	db.Add(directAttachment)
	if !db.Authorize(other, directAttachment.Id) {
		t.Fatalf("expected attachment of a public page to be authorized")
	}

	// attached to a table whose own parent is the public root page.
	table := newTable(types.NewUid(), owner, owner, types.RelChild)
	db.Add(table)
	tableAttachment := newAttachment(types.NewUid(), owner, table.Id)
	db.Add(tableAttachment)
	if !db.Authorize(other, tableAttachment.Id) {
		t.Fatalf("expected attachment of a table whose parent is a public page to be authorized")
	}

	// attached two levels below the public root, where neither the
	// attachment's parent nor its parent's parent is a public page.
	privateA := newPage(types.NewUid(), owner, owner, types.RelChild)
	db.Add(privateA)
	privateB := newPage(types.NewUid(), owner, privateA.Id, types.RelChild)
	db.Add(privateB)
	orphanAttachment := newAttachment(types.NewUid(), owner, privateB.Id)
	db.Add(orphanAttachment)
	if db.Authorize(other, orphanAttachment.Id) {
		t.Fatalf("expected attachment whose parent chain never reaches a public page to be refused")
	}
}

func TestContentHashChangesOnAdd(t *testing.T) {
	owner := types.NewUid()
	db := openTestDb(t, owner)
	root := newPage(owner, owner, owner, types.RelNoParent)
	db.Add(root)

	h1, err := db.ContentHash()
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	db.Add(newNote(types.NewUid(), owner, owner))
	h2, err := db.ContentHash()
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected content hash to change after adding an item")
	}
}
