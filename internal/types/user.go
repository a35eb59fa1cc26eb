package types

import "github.com/infumap/storage-core/internal/errs"

// User is a kv-log record describing an account: its root page, trash
// page, and password credential. Unlike Item, User has no capability
// groups, so its JSON projection is fixed.
type User struct {
	Id                     Uid    `json:"id"`
	Username               string `json:"username"`
	PasswordHash           string `json:"password_hash"`
	PasswordSalt           string `json:"password_salt"`
	RootPageId             Uid    `json:"root_page_id"`
	TrashPageId             Uid    `json:"trash_page_id"`
	TotalContentHash       uint64 `json:"total_content_hash"`
	CreationDate           int64  `json:"creation_date"`
}

func (u *User) ValueTypeIdentifier() string { return "user" }
func (u *User) GetId() Uid                  { return u.Id }

func (u *User) ToJSON() (map[string]any, error) {
	return map[string]any{
		"__recordType":       "user",
		"id":                 u.Id.String(),
		"username":           u.Username,
		"password_hash":      u.PasswordHash,
		"password_salt":      u.PasswordSalt,
		"root_page_id":       u.RootPageId.String(),
		"trash_page_id":      u.TrashPageId.String(),
		"total_content_hash": u.TotalContentHash,
		"creation_date":      u.CreationDate,
	}, nil
}

// UserFromJSON performs a full-parse of a user record.
func UserFromJSON(m map[string]any) (*User, error) {
	idStr, _ := asString(m["id"])
	id := Uid(idStr)
	if !id.Valid() {
		return nil, errs.New(errs.CorruptLog, "user record has invalid id %q", idStr)
	}
	username, _ := asString(m["username"])
	passwordHash, _ := asString(m["password_hash"])
	passwordSalt, _ := asString(m["password_salt"])
	rootPageStr, _ := asString(m["root_page_id"])
	trashPageStr, _ := asString(m["trash_page_id"])
	creationDate, _ := asInt64(m["creation_date"])
	hashVal, _ := asInt64(m["total_content_hash"])
	return &User{
		Id:               id,
		Username:         username,
		PasswordHash:     passwordHash,
		PasswordSalt:     passwordSalt,
		RootPageId:       Uid(rootPageStr),
		TrashPageId:      Uid(trashPageStr),
		TotalContentHash: uint64(hashVal),
		CreationDate:     creationDate,
	}, nil
}

// CreateUpdate diffs u against old: an update record carrying id and every
// field whose value differs. Unlike Item.CreateUpdate, no field is refused
// as immutable and a field absent from u is not recorded as removed.
func (u *User) CreateUpdate(old *User) (map[string]any, error) {
	newJSON, _ := u.ToJSON()
	oldJSON, _ := old.ToJSON()
	diff := map[string]any{"__recordType": "update", "id": u.Id.String()}
	for k, nv := range newJSON {
		if k == "__recordType" || k == "id" {
			continue
		}
		if ov, ok := oldJSON[k]; !ok || ov != nv {
			diff[k] = nv
		}
	}
	return diff, nil
}

// ApplyUpdate merges diff onto u in place.
func (u *User) ApplyUpdate(diff map[string]any) error {
	base, _ := u.ToJSON()
	for k, v := range diff {
		if k == "__recordType" {
			continue
		}
		base[k] = v
	}
	merged, err := UserFromJSON(base)
	if err != nil {
		return err
	}
	*u = *merged
	return nil
}
