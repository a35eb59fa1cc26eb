package types

import (
	"strings"

	"github.com/google/uuid"

	"github.com/infumap/storage-core/internal/errs"
)

// Uid is a 32-character lowercase hex string identifying an Item, User,
// Session or IngestSession.
type Uid string

// EmptyUid is the all-zero "no value" sentinel; validation treats it as an
// absent parent_id. Root items reference their own id, not EmptyUid.
const EmptyUid Uid = "00000000000000000000000000000000"

// NewUid generates a fresh random Uid from a version-4 UUID (122 random
// bits), hex-encoded without dashes to the 32-char lowercase form every
// Uid uses.
func NewUid() Uid {
	u := uuid.New()
	return Uid(strings.ReplaceAll(u.String(), "-", ""))
}

// Valid reports whether u is exactly 32 lowercase hex characters.
func (u Uid) Valid() bool {
	if len(u) != 32 {
		return false
	}
	for _, c := range string(u) {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

func (u Uid) String() string { return string(u) }

// Check returns an InvalidArg error if u is not a well-formed Uid.
func (u Uid) Check(field string) error {
	if !u.Valid() {
		return errs.New(errs.InvalidArg, "%s is not a valid uid: %q", field, string(u))
	}
	return nil
}

// uidChars are the lowercase hex characters used to shard local object
// store and image cache directories into 256 subdirectories, matching the
// original Rust implementation's util/fs.rs::uid_chars().
var uidChars = []byte("0123456789abcdef")

// UidChars returns the 16 hex characters used for 256-way directory sharding.
func UidChars() []byte { return uidChars }

// ShardPrefix returns the two-character directory shard name derived from
// the first two hex characters of a Uid (00 through ff).
func (u Uid) ShardPrefix() string {
	if len(u) < 2 {
		return "00"
	}
	return string(u[:2])
}
