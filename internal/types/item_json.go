package types

import (
	"encoding/json"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/ordering"
)

// ToJSON performs a full-serialize: it emits every base field plus every
// capability-group field applicable to the item's ItemType. A required
// group field left nil is a programming error in the caller, not a user
// error, so it is reported as errs.CorruptLog rather than InvalidArg.
func (i *Item) ToJSON() (map[string]any, error) {
	if !i.ItemType.Valid() {
		return nil, errs.New(errs.CorruptLog, "unrecognized item_type %q", i.ItemType)
	}
	m := map[string]any{
		"__recordType":           "item",
		"id":                     i.Id.String(),
		"owner_id":               i.OwnerId.String(),
		"parent_id":              i.ParentId.String(),
		"relationship_to_parent": string(i.RelationshipToParent),
		"creation_date":          i.CreationDate,
		"last_modified_date":     i.LastModifiedDate,
		"ordering":               i.Ordering,
		"item_type":              string(i.ItemType),
	}

	req := func(name string, present bool) error {
		if !present {
			return errs.New(errs.CorruptLog, "item %s: capability field %q required for item_type %q is absent", i.Id, name, i.ItemType)
		}
		return nil
	}

	if i.ItemType.IsPositionable() {
		if err := req("spatial_position_gr", i.SpatialPositionGr != nil); err != nil {
			return nil, err
		}
		m["spatial_position_gr"] = *i.SpatialPositionGr
	}
	if i.ItemType.IsXSizeable() {
		if err := req("spatial_width_gr", i.SpatialWidthGr != nil); err != nil {
			return nil, err
		}
		m["spatial_width_gr"] = *i.SpatialWidthGr
	}
	if i.ItemType.IsYSizeable() {
		if err := req("spatial_height_gr", i.SpatialHeightGr != nil); err != nil {
			return nil, err
		}
		m["spatial_height_gr"] = *i.SpatialHeightGr
	}
	if i.ItemType.IsTitled() {
		if err := req("title", i.Title != nil); err != nil {
			return nil, err
		}
		m["title"] = *i.Title
	}
	if i.ItemType.IsContainer() {
		if err := req("order_children_by", i.OrderChildrenBy != nil); err != nil {
			return nil, err
		}
		m["order_children_by"] = *i.OrderChildrenBy
	}
	if i.ItemType.IsFlagsCapable() {
		if err := req("flags", i.Flags != nil); err != nil {
			return nil, err
		}
		m["flags"] = *i.Flags
	}
	if i.ItemType.IsFormatCapable() {
		if err := req("format", i.Format != nil); err != nil {
			return nil, err
		}
		m["format"] = *i.Format
	}
	if i.ItemType.IsColorable() {
		if err := req("background_color_index", i.BackgroundColorIndex != nil); err != nil {
			return nil, err
		}
		m["background_color_index"] = *i.BackgroundColorIndex
	}
	if i.ItemType.IsAspectCapable() {
		if err := req("natural_aspect", i.NaturalAspect != nil); err != nil {
			return nil, err
		}
		m["natural_aspect"] = *i.NaturalAspect
	}
	if i.ItemType.IsTabular() {
		if err := req("number_of_visible_columns", i.NumberOfVisibleColumns != nil); err != nil {
			return nil, err
		}
		m["table_columns"] = i.TableColumns
		m["number_of_visible_columns"] = *i.NumberOfVisibleColumns
	}
	if i.ItemType.IsPage() {
		for name, present := range map[string]bool{
			"inner_spatial_width_gr": i.InnerSpatialWidthGr != nil,
			"arrange_algorithm":      i.ArrangeAlgorithm != nil,
			"permission_flags":       i.PermissionFlags != nil,
			"grid_number_of_columns": i.GridNumberOfColumns != nil,
			"grid_cell_aspect":       i.GridCellAspect != nil,
			"doc_width_bl":           i.DocWidthBl != nil,
			"justified_row_aspect":   i.JustifiedRowAspect != nil,
		} {
			if err := req(name, present); err != nil {
				return nil, err
			}
		}
		m["inner_spatial_width_gr"] = *i.InnerSpatialWidthGr
		m["arrange_algorithm"] = *i.ArrangeAlgorithm
		m["permission_flags"] = *i.PermissionFlags
		m["grid_number_of_columns"] = *i.GridNumberOfColumns
		m["grid_cell_aspect"] = *i.GridCellAspect
		m["doc_width_bl"] = *i.DocWidthBl
		m["justified_row_aspect"] = *i.JustifiedRowAspect
		// popup fields are optional even on pages (no popup configured).
		if i.PopupPositionGr != nil {
			m["popup_position_gr"] = *i.PopupPositionGr
		}
		if i.PopupAlignmentPoint != nil {
			m["popup_alignment_point"] = *i.PopupAlignmentPoint
		}
		if i.PopupWidthGr != nil {
			m["popup_width_gr"] = *i.PopupWidthGr
		}
	}

	switch i.ItemType {
	case Link:
		if err := req("link_to_id", i.LinkToId != nil); err != nil {
			return nil, err
		}
		m["link_to_id"] = i.LinkToId.String()
	case Rating:
		if err := req("rating", i.Rating != nil); err != nil {
			return nil, err
		}
		m["rating"] = *i.Rating
	case Password:
		if err := req("text", i.Text != nil); err != nil {
			return nil, err
		}
		m["text"] = *i.Text
	case Note:
		if err := req("url", i.Url != nil); err != nil {
			return nil, err
		}
		m["url"] = *i.Url
	}

	if i.ItemType == Flipcard {
		if err := req("scale", i.Scale != nil); err != nil {
			return nil, err
		}
		m["scale"] = *i.Scale
	}

	if i.ItemType.IsData() {
		if err := req("mime_type", i.MimeType != nil); err != nil {
			return nil, err
		}
		if err := req("file_size_bytes", i.FileSizeBytes != nil); err != nil {
			return nil, err
		}
		m["mime_type"] = *i.MimeType
		m["file_size_bytes"] = *i.FileSizeBytes
		if i.OriginalCreationDate != nil {
			m["original_creation_date"] = *i.OriginalCreationDate
		}
		if i.ItemType == Image {
			if err := req("image_size_px", i.ImageSizePx != nil); err != nil {
				return nil, err
			}
			m["image_size_px"] = *i.ImageSizePx
			if i.Thumbnail != nil {
				m["thumbnail"] = *i.Thumbnail
			}
		}
	}

	return m, nil
}

// field-extraction helpers operating on the decoded map[string]any produced
// by encoding/json.Unmarshal (numbers decode as float64 unless a
// json.Decoder with UseNumber was used, ItemFromJSON accounts for both).

func asString(v any) (string, bool) { s, ok := v.(string); return s, ok }

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ItemFromJSON performs a full-parse: it validates item_type, then requires
// and decodes exactly the fields applicable to that type, returning
// errs.CorruptLog on any missing or mistyped field.
func ItemFromJSON(m map[string]any) (*Item, error) {
	// ToJSON's projection holds Go-typed values (int64, Vector, Dimensions,
	// Ordering); re-encode so it parses exactly like a decoded log line.
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, errs.Wrap(errs.CorruptLog, err, "re-encoding item record")
	}
	m = nil
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.Wrap(errs.CorruptLog, err, "decoding item record")
	}

	itemType, ok := asString(m["item_type"])
	if !ok || !ItemType(itemType).Valid() {
		return nil, errs.New(errs.CorruptLog, "item record missing or invalid item_type: %v", m["item_type"])
	}
	t := ItemType(itemType)

	idStr, _ := asString(m["id"])
	id := Uid(idStr)
	if !id.Valid() {
		return nil, errs.New(errs.CorruptLog, "item record has invalid id %q", idStr)
	}

	get := func(field string) (any, error) {
		v, ok := m[field]
		if !ok {
			return nil, errs.New(errs.CorruptLog, "item %s: required field %q absent", id, field)
		}
		return v, nil
	}
	getStr := func(field string) (string, error) {
		v, err := get(field)
		if err != nil {
			return "", err
		}
		s, ok := asString(v)
		if !ok {
			return "", errs.New(errs.CorruptLog, "item %s: field %q is not a string", id, field)
		}
		return s, nil
	}
	getInt := func(field string) (int64, error) {
		v, err := get(field)
		if err != nil {
			return 0, err
		}
		n, ok := asInt64(v)
		if !ok {
			return 0, errs.New(errs.CorruptLog, "item %s: field %q is not an integer", id, field)
		}
		return n, nil
	}
	getFloat := func(field string) (float64, error) {
		v, err := get(field)
		if err != nil {
			return 0, err
		}
		n, ok := asFloat64(v)
		if !ok {
			return 0, errs.New(errs.CorruptLog, "item %s: field %q is not a number", id, field)
		}
		return n, nil
	}

	relStr, err := getStr("relationship_to_parent")
	if err != nil {
		return nil, err
	}
	rel := RelationshipToParent(relStr)
	if !rel.Valid() {
		return nil, errs.New(errs.CorruptLog, "item %s: invalid relationship_to_parent %q", id, relStr)
	}

	parentStr, _ := asString(m["parent_id"])
	creationDate, err := getInt("creation_date")
	if err != nil {
		return nil, err
	}
	lastModified, err := getInt("last_modified_date")
	if err != nil {
		return nil, err
	}

	orderingRaw, err := json.Marshal(m["ordering"])
	if err != nil {
		return nil, errs.Wrap(errs.CorruptLog, err, "item %s: re-encoding ordering", id)
	}
	var ord ordering.Ordering
	if err := json.Unmarshal(orderingRaw, &ord); err != nil {
		return nil, errs.Wrap(errs.CorruptLog, err, "item %s: decoding ordering", id)
	}
	if err := ordering.Check(ord); err != nil {
		return nil, err
	}

	ownerStr, _ := asString(m["owner_id"])

	item := &Item{
		Id:                   id,
		OwnerId:              Uid(ownerStr),
		ParentId:             Uid(parentStr),
		RelationshipToParent: rel,
		CreationDate:         creationDate,
		LastModifiedDate:     lastModified,
		Ordering:             ord,
		ItemType:             t,
	}

	if t.IsPositionable() {
		raw, ok := m["spatial_position_gr"].(map[string]any)
		if !ok {
			return nil, errs.New(errs.CorruptLog, "item %s: field %q absent or malformed", id, "spatial_position_gr")
		}
		xv, xok := asInt64(raw["x"])
		yv, yok := asInt64(raw["y"])
		if !xok || !yok {
			return nil, errs.New(errs.CorruptLog, "item %s: spatial_position_gr has non-integer x/y", id)
		}
		item.SpatialPositionGr = &Vector{X: xv, Y: yv}
	}
	if t.IsXSizeable() {
		v, err := getInt("spatial_width_gr")
		if err != nil {
			return nil, err
		}
		item.SpatialWidthGr = &v
	}
	if t.IsYSizeable() {
		v, err := getInt("spatial_height_gr")
		if err != nil {
			return nil, err
		}
		item.SpatialHeightGr = &v
	}
	if t.IsTitled() {
		v, err := getStr("title")
		if err != nil {
			return nil, err
		}
		item.Title = &v
	}
	if t.IsContainer() {
		v, err := getStr("order_children_by")
		if err != nil {
			return nil, err
		}
		item.OrderChildrenBy = &v
	}
	if t.IsFlagsCapable() {
		v, err := getInt("flags")
		if err != nil {
			return nil, err
		}
		item.Flags = &v
	}
	if t.IsFormatCapable() {
		v, err := getStr("format")
		if err != nil {
			return nil, err
		}
		item.Format = &v
	}
	if t.IsColorable() {
		v, err := getInt("background_color_index")
		if err != nil {
			return nil, err
		}
		item.BackgroundColorIndex = &v
	}
	if t.IsAspectCapable() {
		v, err := getFloat("natural_aspect")
		if err != nil {
			return nil, err
		}
		item.NaturalAspect = &v
	}
	if t.IsTabular() {
		cols, _ := m["table_columns"].([]any)
		tc := make([]TableColumn, 0, len(cols))
		for _, c := range cols {
			cm, ok := c.(map[string]any)
			if !ok {
				return nil, errs.New(errs.CorruptLog, "item %s: malformed table_columns entry", id)
			}
			name, _ := asString(cm["name"])
			width, _ := asInt64(cm["widthGr"])
			tc = append(tc, TableColumn{Name: name, WidthGr: width})
		}
		item.TableColumns = tc
		v, err := getInt("number_of_visible_columns")
		if err != nil {
			return nil, err
		}
		item.NumberOfVisibleColumns = &v
	}
	if t.IsPage() {
		for field, dst := range map[string]**int64{
			"inner_spatial_width_gr": &item.InnerSpatialWidthGr,
			"permission_flags":       &item.PermissionFlags,
			"grid_number_of_columns": &item.GridNumberOfColumns,
			"doc_width_bl":           &item.DocWidthBl,
		} {
			v, err := getInt(field)
			if err != nil {
				return nil, err
			}
			*dst = &v
		}
		for field, dst := range map[string]**float64{
			"grid_cell_aspect":     &item.GridCellAspect,
			"justified_row_aspect": &item.JustifiedRowAspect,
		} {
			v, err := getFloat(field)
			if err != nil {
				return nil, err
			}
			*dst = &v
		}
		alg, err := getStr("arrange_algorithm")
		if err != nil {
			return nil, err
		}
		item.ArrangeAlgorithm = &alg
		if raw, ok := m["popup_position_gr"].(map[string]any); ok {
			xv, _ := asInt64(raw["x"])
			yv, _ := asInt64(raw["y"])
			item.PopupPositionGr = &Vector{X: xv, Y: yv}
		}
		if v, ok := asString(m["popup_alignment_point"]); ok {
			item.PopupAlignmentPoint = &v
		}
		if v, ok := asInt64(m["popup_width_gr"]); ok {
			item.PopupWidthGr = &v
		}
	}

	switch t {
	case Link:
		v, err := getStr("link_to_id")
		if err != nil {
			return nil, err
		}
		linkTo := Uid(v)
		item.LinkToId = &linkTo
	case Rating:
		v, err := getInt("rating")
		if err != nil {
			return nil, err
		}
		item.Rating = &v
	case Password:
		text, err := getStr("text")
		if err != nil {
			return nil, err
		}
		item.Text = &text
	case Note:
		url, err := getStr("url")
		if err != nil {
			return nil, err
		}
		item.Url = &url
	}

	if t == Flipcard {
		v, err := getFloat("scale")
		if err != nil {
			return nil, err
		}
		item.Scale = &v
	}

	if t.IsData() {
		mime, err := getStr("mime_type")
		if err != nil {
			return nil, err
		}
		size, err := getInt("file_size_bytes")
		if err != nil {
			return nil, err
		}
		item.MimeType = &mime
		item.FileSizeBytes = &size
		if v, ok := asInt64(m["original_creation_date"]); ok {
			item.OriginalCreationDate = &v
		}
		if t == Image {
			raw, ok := m["image_size_px"].(map[string]any)
			if !ok {
				return nil, errs.New(errs.CorruptLog, "item %s: field %q absent or malformed", id, "image_size_px")
			}
			wv, _ := asInt64(raw["w"])
			hv, _ := asInt64(raw["h"])
			item.ImageSizePx = &Dimensions{W: wv, H: hv}
			if v, ok := asString(m["thumbnail"]); ok {
				item.Thumbnail = &v
			}
		}
	}

	return item, nil
}
