package types

import "github.com/infumap/storage-core/internal/ordering"

// Vector is an integer grid-unit (gr) 2D point or size, used for spatial
// position and popup position fields.
type Vector struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// Dimensions is a pixel width/height pair, used for image_size_px.
type Dimensions struct {
	W int64 `json:"w"`
	H int64 `json:"h"`
}

// TableColumn is one column definition of a table item's table_columns field.
type TableColumn struct {
	Name    string `json:"name"`
	WidthGr int64  `json:"widthGr"`
}

// Item is the tagged-variant record at the center of the storage core: a
// base set of fields every item carries, plus capability-group fields
// that are present
// or absent depending on ItemType. Optional groups are represented as
// pointers so that "field meaningfully absent for this type" and "field
// present with zero value" are distinguishable at the JSON boundary.
type Item struct {
	Id                   Uid                  `json:"id"`
	OwnerId              Uid                  `json:"owner_id"`
	ParentId             Uid                  `json:"parent_id"`
	RelationshipToParent RelationshipToParent `json:"relationship_to_parent"`
	CreationDate         int64                `json:"creation_date"`
	LastModifiedDate     int64                `json:"last_modified_date"`
	Ordering             ordering.Ordering    `json:"ordering"`
	ItemType             ItemType             `json:"item_type"`

	// positionable
	SpatialPositionGr *Vector `json:"spatial_position_gr,omitempty"`

	// x-sizeable
	SpatialWidthGr *int64 `json:"spatial_width_gr,omitempty"`

	// y-sizeable
	SpatialHeightGr *int64 `json:"spatial_height_gr,omitempty"`

	// titled
	Title *string `json:"title,omitempty"`

	// container
	OrderChildrenBy *string `json:"order_children_by,omitempty"`

	// flags
	Flags *int64 `json:"flags,omitempty"`

	// format
	Format *string `json:"format,omitempty"`

	// colorable
	BackgroundColorIndex *int64 `json:"background_color_index,omitempty"`

	// aspect
	NaturalAspect *float64 `json:"natural_aspect,omitempty"`

	// tabular
	TableColumns            []TableColumn `json:"table_columns,omitempty"`
	NumberOfVisibleColumns   *int64        `json:"number_of_visible_columns,omitempty"`

	// page-only
	InnerSpatialWidthGr *int64   `json:"inner_spatial_width_gr,omitempty"`
	ArrangeAlgorithm    *string  `json:"arrange_algorithm,omitempty"`
	PermissionFlags     *int64   `json:"permission_flags,omitempty"`
	PopupPositionGr     *Vector  `json:"popup_position_gr,omitempty"`
	PopupAlignmentPoint *string  `json:"popup_alignment_point,omitempty"`
	PopupWidthGr        *int64   `json:"popup_width_gr,omitempty"`
	GridNumberOfColumns *int64   `json:"grid_number_of_columns,omitempty"`
	GridCellAspect      *float64 `json:"grid_cell_aspect,omitempty"`
	DocWidthBl          *int64   `json:"doc_width_bl,omitempty"`
	JustifiedRowAspect  *float64 `json:"justified_row_aspect,omitempty"`

	// type-specific payload fields
	Url                 *string     `json:"url,omitempty"`
	Text                *string     `json:"text,omitempty"`
	LinkToId            *Uid        `json:"link_to_id,omitempty"`
	Rating              *int64      `json:"rating,omitempty"`
	ImageSizePx         *Dimensions `json:"image_size_px,omitempty"`
	Thumbnail           *string     `json:"thumbnail,omitempty"`
	Scale               *float64    `json:"scale,omitempty"`
	MimeType            *string     `json:"mime_type,omitempty"`
	FileSizeBytes       *int64      `json:"file_size_bytes,omitempty"`
	OriginalCreationDate *int64     `json:"original_creation_date,omitempty"`
}

// ValueTypeIdentifier names the kv-log record kind this item occupies,
// matching JsonLogSerializable::value_type_identifier in the original.
func (i *Item) ValueTypeIdentifier() string { return "item" }

// GetId returns the item's Uid, satisfying the kvlog.Serializable contract.
func (i *Item) GetId() Uid { return i.Id }

// IsRoot reports whether i is a user's root page (self-referencing parent).
func (i *Item) IsRoot() bool { return i.ParentId == i.Id }
