// Package migrate implements the generic log-rewriting engine that moves
// a kv-log from one descriptor version to the next: each registered
// Migration rewrites every entry/update record's raw JSON object, then
// the engine streams the whole file to a temp copy and renames it into
// place.
package migrate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/sjson"

	"github.com/infumap/storage-core/internal/errs"
)

// Migration upgrades entry/update records from FromVersion to FromVersion+1.
// RewriteRecord receives the decoded JSON object of an entry or update
// record (descriptor and delete records pass through untouched) and
// returns the upgraded object.
type Migration struct {
	Name          string
	FromVersion   int64
	RewriteRecord func(m map[string]any) (map[string]any, error)
}

// registry holds every migration this build knows about, keyed by the
// version it upgrades from. ListMigrations returns them in order.
var registry = map[int64]Migration{}

// Register adds m to the registry. Called from package init(); the item-log
// migrations are registered in item_migrations.go.
func Register(m Migration) {
	if _, exists := registry[m.FromVersion]; exists {
		panic(fmt.Sprintf("migrate: duplicate migration registered for version %d", m.FromVersion))
	}
	registry[m.FromVersion] = m
}

// ListMigrations returns every registered migration ordered by
// FromVersion, for introspection (the "migrate list" command).
func ListMigrations() []Migration {
	out := make([]Migration, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].FromVersion < out[j-1].FromVersion; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// descriptor mirrors kvlog's descriptor record shape; duplicated here
// rather than imported so the migration engine has no dependency on
// kvlog's generic Log type (it operates purely on raw JSON lines).
type descriptor struct {
	RecordType          string `json:"__recordType"`
	ValueTypeIdentifier string `json:"valueTypeIdentifier"`
	Version             int64  `json:"version"`
}

// Run reads the descriptor version at path, applies in sequence every
// registered migration from that version up to targetVersion, and writes
// the result to path via a {path}.new -> rename dance, keeping the
// pre-migration file at {path}.v{old} as a recovery point.
func Run(path string, targetVersion int64) (fromVersion int64, toVersion int64, err error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, 0, errs.Wrap(errs.Io, err, "opening %s", path)
	}
	defer in.Close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	if !scanner.Scan() {
		return 0, 0, errs.New(errs.CorruptLog, "%s: empty log, no descriptor", path)
	}
	descLine := append([]byte(nil), scanner.Bytes()...)
	var desc descriptor
	if err := json.Unmarshal(descLine, &desc); err != nil {
		return 0, 0, errs.Wrap(errs.CorruptLog, err, "%s: malformed descriptor", path)
	}
	if desc.RecordType != "descriptor" {
		return 0, 0, errs.New(errs.CorruptLog, "%s: first record is not a descriptor", path)
	}
	fromVersion = desc.Version
	if fromVersion >= targetVersion {
		return fromVersion, fromVersion, nil
	}

	newPath := path + ".new"
	out, err := os.OpenFile(newPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, 0, errs.Wrap(errs.Io, err, "creating %s", newPath)
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if _, err := out.Write(append(descLine, '\n')); err != nil {
		out.Close()
		os.Remove(newPath)
		return 0, 0, errs.Wrap(errs.Io, err, "writing descriptor to %s", newPath)
	}

	version := fromVersion
	for version < targetVersion {
		if _, ok := registry[version]; !ok {
			out.Close()
			os.Remove(newPath)
			return 0, 0, errs.New(errs.InvalidArg, "no migration registered to upgrade from version %d", version)
		}
		version++
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			out.Close()
			os.Remove(newPath)
			return 0, 0, errs.Wrap(errs.CorruptLog, err, "%s: malformed json line", path)
		}
		rt, _ := m["__recordType"].(string)
		if rt == "entry" || rt == "update" {
			for v := fromVersion; v < targetVersion; v++ {
				mig := registry[v]
				m, err = mig.RewriteRecord(m)
				if err != nil {
					out.Close()
					os.Remove(newPath)
					return 0, 0, errs.Wrap(errs.CorruptLog, err, "applying migration %q", mig.Name)
				}
			}
		}
		if err := enc.Encode(m); err != nil {
			out.Close()
			os.Remove(newPath)
			return 0, 0, errs.Wrap(errs.Io, err, "writing migrated record")
		}
	}
	if err := scanner.Err(); err != nil {
		out.Close()
		os.Remove(newPath)
		return 0, 0, errs.Wrap(errs.Io, err, "scanning %s", path)
	}
	if err := out.Close(); err != nil {
		return 0, 0, errs.Wrap(errs.Io, err, "closing %s", newPath)
	}

	backupPath := fmt.Sprintf("%s.v%d", path, fromVersion)
	if err := os.Rename(path, backupPath); err != nil {
		return 0, 0, errs.Wrap(errs.Io, err, "backing up %s to %s", path, backupPath)
	}
	if err := os.Rename(newPath, path); err != nil {
		// best-effort restore of the original so a failed migration
		// does not leave the store without any log file at all.
		os.Rename(backupPath, path)
		return 0, 0, errs.Wrap(errs.Io, err, "renaming %s into place", newPath)
	}

	// the new descriptor line must reflect targetVersion; since
	// RewriteRecord only touches entry/update lines, patch the
	// descriptor by rewriting just the first line in place.
	if err := patchDescriptorVersion(path, targetVersion); err != nil {
		return 0, 0, err
	}

	return fromVersion, targetVersion, nil
}

// patchDescriptorVersion rewrites just the "version" field of the first
// line of path in place, leaving every other descriptor field (and every
// subsequent line) byte-for-byte untouched. Using sjson here instead of a
// full unmarshal/marshal round trip means an unknown future descriptor
// field survives a migration run it doesn't know about.
func patchDescriptorVersion(path string, version int64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.Io, err, "reading %s to patch descriptor", path)
	}
	nl := indexByte(data, '\n')
	if nl < 0 {
		nl = len(data)
	}
	patched, err := sjson.SetBytes(data[:nl], "version", version)
	if err != nil {
		return errs.Wrap(errs.Io, err, "patching descriptor version of %s", path)
	}
	out := append(patched, data[nl:]...)
	return os.WriteFile(path, out, 0o644)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
