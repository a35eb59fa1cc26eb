package types

// ItemType enumerates the kinds of Item the storage core recognizes.
type ItemType string

const (
	Page        ItemType = "page"
	Table       ItemType = "table"
	Composite   ItemType = "composite"
	Note        ItemType = "note"
	File        ItemType = "file"
	Password    ItemType = "password"
	Image       ItemType = "image"
	Rating      ItemType = "rating"
	Link        ItemType = "link"
	Placeholder ItemType = "placeholder"
	Expression  ItemType = "expression"
	Flipcard    ItemType = "flipcard"
)

// AllItemTypes lists every recognized ItemType, for parse-time validation.
var AllItemTypes = []ItemType{
	Page, Table, Composite, Note, File, Password, Image, Rating, Link,
	Placeholder, Expression, Flipcard,
}

// Valid reports whether t is one of the recognized item types.
func (t ItemType) Valid() bool {
	for _, v := range AllItemTypes {
		if v == t {
			return true
		}
	}
	return false
}

// RelationshipToParent describes how an item relates to its parent_id.
type RelationshipToParent string

const (
	RelChild      RelationshipToParent = "child"
	RelAttachment RelationshipToParent = "attachment"
	RelNoParent   RelationshipToParent = "no-parent"
)

func (r RelationshipToParent) Valid() bool {
	switch r {
	case RelChild, RelAttachment, RelNoParent:
		return true
	}
	return false
}

// Capability predicates drive which optional field groups a given
// ItemType carries, both at parse time and at diff time.

// IsPositionable is true for every type except placeholder.
func (t ItemType) IsPositionable() bool { return t != Placeholder }

// IsXSizeable: file, note, page, table, image, password, composite,
// expression, flipcard and link.
func (t ItemType) IsXSizeable() bool {
	switch t {
	case File, Note, Page, Table, Image, Password, Composite, Expression, Flipcard, Link:
		return true
	}
	return false
}

// IsYSizeable: table and link.
func (t ItemType) IsYSizeable() bool {
	switch t {
	case Table, Link:
		return true
	}
	return false
}

// IsTitled: file, note, page, table, image, expression.
func (t ItemType) IsTitled() bool {
	switch t {
	case File, Note, Page, Table, Image, Expression:
		return true
	}
	return false
}

// IsContainer: page, table, composite, flipcard.
func (t ItemType) IsContainer() bool {
	switch t {
	case Page, Table, Composite, Flipcard:
		return true
	}
	return false
}

// IsAttachmentsCapable: types that may own attachments. Every
// non-placeholder type may hold attachments (table/composite/page all
// appear as attachment parents); placeholder itself cannot, since it is
// always an attachment rather than a holder of one.
func (t ItemType) IsAttachmentsCapable() bool { return t != Placeholder }

// IsFlagsCapable: table, note, composite, page, image, expression.
func (t ItemType) IsFlagsCapable() bool {
	switch t {
	case Table, Note, Composite, Page, Image, Expression:
		return true
	}
	return false
}

// IsFormatCapable: note, expression.
func (t ItemType) IsFormatCapable() bool {
	switch t {
	case Note, Expression:
		return true
	}
	return false
}

// IsColorable: page, flipcard.
func (t ItemType) IsColorable() bool {
	switch t {
	case Page, Flipcard:
		return true
	}
	return false
}

// IsAspectCapable: page, flipcard.
func (t ItemType) IsAspectCapable() bool {
	switch t {
	case Page, Flipcard:
		return true
	}
	return false
}

// IsTabular: table, page.
func (t ItemType) IsTabular() bool {
	switch t {
	case Table, Page:
		return true
	}
	return false
}

// IsData: file, image, identity includes external binary content.
func (t ItemType) IsData() bool {
	switch t {
	case File, Image:
		return true
	}
	return false
}

// IsPage is a narrow helper used by authorization and page-only fields
// (permission_flags, inner_spatial_width_gr, arrange_algorithm, ...).
func (t ItemType) IsPage() bool { return t == Page }
