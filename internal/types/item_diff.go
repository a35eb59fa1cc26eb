package types

import (
	"reflect"

	"github.com/infumap/storage-core/internal/errs"
)

// immutableItemFields names the fields that, once written by ToJSON at
// creation time, a later update record must never change. id is immutable
// by construction (it is the kv-log key, never part of a diff); item_type,
// owner_id and creation_date are immutable because changing them would
// change which capability fields are required and invalidate history.
var immutableItemFields = map[string]bool{
	"id":                     true,
	"owner_id":               true,
	"item_type":              true,
	"creation_date":          true,
	"mime_type":              true,
	"file_size_bytes":        true,
	"image_size_px":          true,
	"thumbnail":              true,
	"original_creation_date": true,
}

// CreateUpdate diffs i (the new state) against old (the prior persisted
// state) and returns a sparse map containing only the fields that changed,
// plus the id so the record can be routed. It is an error for a diff to
// touch an immutable field; callers must construct a new item instead.
func (i *Item) CreateUpdate(old *Item) (map[string]any, error) {
	if old.Id != i.Id {
		return nil, errs.New(errs.InvalidArg, "cannot diff items with different ids (%s vs %s)", old.Id, i.Id)
	}
	newJSON, err := i.ToJSON()
	if err != nil {
		return nil, err
	}
	oldJSON, err := old.ToJSON()
	if err != nil {
		return nil, err
	}
	diff := map[string]any{
		"__recordType": "update",
		"id":           i.Id.String(),
	}
	for k, nv := range newJSON {
		if k == "__recordType" || k == "id" {
			continue
		}
		ov, existed := oldJSON[k]
		if existed && reflect.DeepEqual(ov, nv) {
			continue
		}
		if immutableItemFields[k] {
			return nil, errs.New(errs.InvalidArg, "update attempts to change immutable field %q on item %s", k, i.Id)
		}
		diff[k] = nv
	}
	for k := range oldJSON {
		if k == "__recordType" || k == "id" {
			continue
		}
		if _, stillPresent := newJSON[k]; !stillPresent {
			if immutableItemFields[k] {
				return nil, errs.New(errs.InvalidArg, "update attempts to remove immutable field %q on item %s", k, i.Id)
			}
			diff[k] = nil
		}
	}
	return diff, nil
}

// IsNoopUpdate reports whether an update record produced by CreateUpdate
// carries no field changes beyond routing metadata, so callers can skip
// appending a record that would change nothing on replay.
func IsNoopUpdate(diff map[string]any) bool {
	for k := range diff {
		if k != "__recordType" && k != "id" {
			return false
		}
	}
	return true
}

// ApplyUpdate merges diff onto i's full JSON projection and re-parses the
// result, replacing i's fields in place. It refuses any diff that touches
// an immutable field, independent of whether the value would be unchanged.
func (i *Item) ApplyUpdate(diff map[string]any) error {
	for k := range diff {
		if k == "__recordType" || k == "id" {
			continue
		}
		if immutableItemFields[k] {
			return errs.New(errs.InvalidArg, "update record attempts to change immutable field %q on item %s", k, i.Id)
		}
	}
	base, err := i.ToJSON()
	if err != nil {
		return err
	}
	for k, v := range diff {
		if k == "__recordType" {
			continue
		}
		if v == nil {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	merged, err := ItemFromJSON(base)
	if err != nil {
		return err
	}
	*i = *merged
	return nil
}
