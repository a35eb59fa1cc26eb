package types

import (
	"testing"

	"github.com/infumap/storage-core/internal/ordering"
)

func newTestNote(id, owner, parent Uid) *Item {
	title := "hello"
	url := "https://example.com"
	w := int64(60)
	flags := int64(0)
	format := ""
	return &Item{
		Id:                   id,
		OwnerId:              owner,
		ParentId:             parent,
		RelationshipToParent: RelChild,
		CreationDate:         1000,
		LastModifiedDate:     1000,
		Ordering:             ordering.New(),
		ItemType:             Note,
		SpatialPositionGr:    &Vector{X: 0, Y: 0},
		SpatialWidthGr:       &w,
		Title:                &title,
		Flags:                &flags,
		Format:               &format,
		Url:                  &url,
	}
}

func TestItemRoundTrip(t *testing.T) {
	owner := NewUid()
	item := newTestNote(NewUid(), owner, owner)

	m, err := item.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := ItemFromJSON(m)
	if err != nil {
		t.Fatalf("ItemFromJSON: %v", err)
	}
	if got.Id != item.Id || *got.Title != *item.Title || *got.Url != *item.Url {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, item)
	}
}

func newTestPassword(id, owner, parent Uid) *Item {
	text := "hunter2"
	w := int64(60)
	return &Item{
		Id:                   id,
		OwnerId:              owner,
		ParentId:             parent,
		RelationshipToParent: RelChild,
		CreationDate:         1000,
		LastModifiedDate:     1000,
		Ordering:             ordering.New(),
		ItemType:             Password,
		SpatialPositionGr:    &Vector{X: 0, Y: 0},
		SpatialWidthGr:       &w,
		Text:                 &text,
	}
}

func newTestFlipcard(id, owner, parent Uid) *Item {
	orderBy := "position"
	w := int64(200)
	bg := int64(0)
	aspect := 1.0
	scale := 0.5
	return &Item{
		Id:                   id,
		OwnerId:              owner,
		ParentId:             parent,
		RelationshipToParent: RelChild,
		CreationDate:         1000,
		LastModifiedDate:     1000,
		Ordering:             ordering.New(),
		ItemType:             Flipcard,
		SpatialPositionGr:    &Vector{X: 0, Y: 0},
		SpatialWidthGr:       &w,
		OrderChildrenBy:      &orderBy,
		BackgroundColorIndex: &bg,
		NaturalAspect:        &aspect,
		Scale:                &scale,
	}
}

func TestPasswordCarriesTextNotUrl(t *testing.T) {
	owner := NewUid()
	item := newTestPassword(NewUid(), owner, owner)
	m, err := item.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if _, ok := m["text"]; !ok {
		t.Fatalf("expected password to carry text, got %v", m)
	}
	if _, ok := m["url"]; ok {
		t.Fatalf("expected password to not carry url, got %v", m)
	}
	got, err := ItemFromJSON(m)
	if err != nil {
		t.Fatalf("ItemFromJSON: %v", err)
	}
	if got.Text == nil || *got.Text != *item.Text {
		t.Fatalf("round trip mismatch on text: %+v vs %+v", got, item)
	}
}

func TestFlipcardCarriesScale(t *testing.T) {
	owner := NewUid()
	item := newTestFlipcard(NewUid(), owner, owner)
	m, err := item.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if _, ok := m["scale"]; !ok {
		t.Fatalf("expected flipcard to carry scale, got %v", m)
	}
	got, err := ItemFromJSON(m)
	if err != nil {
		t.Fatalf("ItemFromJSON: %v", err)
	}
	if got.Scale == nil || *got.Scale != *item.Scale {
		t.Fatalf("round trip mismatch on scale: %+v vs %+v", got, item)
	}
}

func TestItemMissingCapabilityFieldRejected(t *testing.T) {
	owner := NewUid()
	item := newTestNote(NewUid(), owner, owner)
	item.Title = nil // titled is required for note
	if _, err := item.ToJSON(); err == nil {
		t.Fatalf("expected error serializing item missing required title")
	}
}

func TestItemUpdateImmutableFieldRefused(t *testing.T) {
	owner := NewUid()
	old := newTestNote(NewUid(), owner, owner)
	changed := *old
	changed.CreationDate = 2000 // attempt to change an immutable field
	if _, err := changed.CreateUpdate(old); err == nil {
		t.Fatalf("expected error diffing update that changes creation_date")
	}
}

func TestItemUpdateEmptyDiff(t *testing.T) {
	owner := NewUid()
	old := newTestNote(NewUid(), owner, owner)
	same := newTestNote(old.Id, owner, owner)
	diff, err := same.CreateUpdate(old)
	if err != nil {
		t.Fatalf("CreateUpdate: %v", err)
	}
	if !IsNoopUpdate(diff) {
		t.Fatalf("expected noop diff for identical items, got %v", diff)
	}
}

func TestItemApplyUpdateChangesTitle(t *testing.T) {
	owner := NewUid()
	old := newTestNote(NewUid(), owner, owner)
	newTitle := "updated"
	changed := newTestNote(old.Id, owner, owner)
	changed.Title = &newTitle

	diff, err := changed.CreateUpdate(old)
	if err != nil {
		t.Fatalf("CreateUpdate: %v", err)
	}
	if err := old.ApplyUpdate(diff); err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}
	if *old.Title != "updated" {
		t.Fatalf("title not updated: %+v", old)
	}
}

func TestContentHashDeterministic(t *testing.T) {
	owner := NewUid()
	item := newTestNote(NewUid(), owner, owner)
	h1, err := item.ContentHash()
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	h2, err := item.ContentHash()
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("content hash not deterministic: %d vs %d", h1, h2)
	}
}
