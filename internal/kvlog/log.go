package kvlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"github.com/tidwall/gjson"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/types"
)

// Log is a generic append-only key-value log over *T, where T implements
// Serializable via its PT (pointer) method set. It keeps the full
// collection in memory, replaying the on-disk JSON-lines file on Open and
// appending one line per Add/Update/Remove thereafter.
type Log[T any, PT interface {
	*T
	Serializable[T]
}] struct {
	mu        sync.Mutex
	path      string
	valueType string
	version   int64
	parse     func(map[string]any) (*T, error)

	file  *os.File
	flock *flock.Flock
	items map[types.Uid]*T
}

// Open loads path if it exists (replaying every record) or creates it with
// a fresh descriptor if it doesn't. parse performs a full-parse of an
// entry/update-merged record into *T, matching the contract of
// types.ItemFromJSON / types.UserFromJSON.
func Open[T any, PT interface {
	*T
	Serializable[T]
}](path string, valueType string, version int64, parse func(map[string]any) (*T, error)) (*Log[T, PT], error) {
	l := &Log[T, PT]{
		path:      path,
		valueType: valueType,
		version:   version,
		parse:     parse,
		items:     make(map[types.Uid]*T),
	}

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "acquiring lock for %s", path)
	}
	if !locked {
		return nil, errs.New(errs.Conflict, "log %s is already open for writing by another process", path)
	}
	l.flock = fl

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if err := l.createFresh(); err != nil {
			fl.Unlock()
			return nil, err
		}
	} else if statErr != nil {
		fl.Unlock()
		return nil, errs.Wrap(errs.Io, statErr, "stat %s", path)
	} else {
		if err := l.replay(); err != nil {
			fl.Unlock()
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fl.Unlock()
		return nil, errs.Wrap(errs.Io, err, "opening %s for append", path)
	}
	l.file = f
	return l, nil
}

func (l *Log[T, PT]) createFresh() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errs.Wrap(errs.Io, err, "creating %s", l.path)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return enc.Encode(descriptorRecord{
		RecordType:          recordDescriptor,
		ValueTypeIdentifier: l.valueType,
		Version:             l.version,
	})
}

// replay reads every line of an existing log file, matching
// read_log_record's __recordType dispatch, and reconstructs l.items.
func (l *Log[T, PT]) replay() error {
	f, err := os.Open(l.path)
	if err != nil {
		return errs.Wrap(errs.Io, err, "opening %s", l.path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// peek __recordType off the raw bytes first: a delete record is
		// the vast majority of lines in a long-lived log and needs only
		// its id, so this avoids a full json.Unmarshal of every line.
		peek := gjson.GetBytes(line, "__recordType")
		if !peek.Exists() {
			return errs.New(errs.CorruptLog, "%s: malformed json line", l.path)
		}
		rt := peek.String()
		if first && rt != recordDescriptor {
			return errs.New(errs.CorruptLog, "%s: first record is %q, expected descriptor", l.path, rt)
		}
		if rt == recordDelete {
			idField := gjson.GetBytes(line, "id")
			if !idField.Exists() {
				return errs.New(errs.CorruptLog, "%s: delete record missing id", l.path)
			}
			id := types.Uid(idField.String())
			if !id.Valid() {
				return errs.New(errs.CorruptLog, "%s: delete record has invalid id %q", l.path, idField.String())
			}
			if _, ok := l.items[id]; !ok {
				return errs.New(errs.CorruptLog, "%s: delete for unknown id %s", l.path, id)
			}
			delete(l.items, id)
			first = false
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			return errs.Wrap(errs.CorruptLog, err, "%s: malformed json line", l.path)
		}
		if first {
			if rt != recordDescriptor {
				return errs.New(errs.CorruptLog, "%s: first record is %q, expected descriptor", l.path, rt)
			}
			vt, _ := m["valueTypeIdentifier"].(string)
			if vt != l.valueType {
				return errs.New(errs.CorruptLog, "%s: descriptor valueTypeIdentifier %q does not match expected %q", l.path, vt, l.valueType)
			}
			version, _ := m["version"].(float64)
			if int64(version) != l.version {
				return errs.New(errs.CorruptLog, "%s: descriptor version %v does not match expected %d", l.path, m["version"], l.version)
			}
			first = false
			continue
		}
		switch rt {
		case recordEntry:
			v, err := l.parse(m)
			if err != nil {
				return err
			}
			id := PT(v).GetId()
			if _, exists := l.items[id]; exists {
				return errs.New(errs.CorruptLog, "%s: duplicate entry for id %s", l.path, id)
			}
			l.items[id] = v
		case recordUpdate:
			id, err := recordId(m)
			if err != nil {
				return err
			}
			existing, ok := l.items[id]
			if !ok {
				return errs.New(errs.CorruptLog, "%s: update for unknown id %s", l.path, id)
			}
			if err := PT(existing).ApplyUpdate(m); err != nil {
				return err
			}
		default:
			return errs.New(errs.CorruptLog, "%s: unrecognized __recordType %q", l.path, rt)
		}
	}
	if err := scanner.Err(); err != nil {
		return errs.Wrap(errs.Io, err, "scanning %s", l.path)
	}
	if first {
		return errs.New(errs.CorruptLog, "%s: empty log, missing descriptor", l.path)
	}
	return nil
}

func (l *Log[T, PT]) appendRecord(m map[string]any) error {
	enc := json.NewEncoder(l.file)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return errs.Wrap(errs.Io, err, "appending record to %s", l.path)
	}
	return nil
}

// Add stores a brand-new record, refusing a duplicate id.
func (l *Log[T, PT]) Add(value *T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := PT(value).GetId()
	if _, exists := l.items[id]; exists {
		return errs.New(errs.AlreadyExists, "%s: id %s already exists", l.path, id)
	}
	full, err := PT(value).ToJSON()
	if err != nil {
		return err
	}
	full["__recordType"] = recordEntry
	if err := l.appendRecord(full); err != nil {
		return err
	}
	l.items[id] = value
	return nil
}

// Update diffs value against the currently stored version and appends an
// update record for the changed fields only, skipping the write entirely
// if nothing changed (empty-diff-writes-nothing).
func (l *Log[T, PT]) Update(value *T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := PT(value).GetId()
	old, ok := l.items[id]
	if !ok {
		return errs.New(errs.NotFound, "%s: id %s not found", l.path, id)
	}
	diff, err := PT(value).CreateUpdate(old)
	if err != nil {
		return err
	}
	if isNoop(diff) {
		return nil
	}
	if err := l.appendRecord(diff); err != nil {
		return err
	}
	if err := PT(old).ApplyUpdate(diff); err != nil {
		return err
	}
	return nil
}

func isNoop(diff map[string]any) bool {
	for k := range diff {
		if k != "__recordType" && k != "id" {
			return false
		}
	}
	return true
}

// Remove appends a delete record and drops id from memory.
func (l *Log[T, PT]) Remove(id types.Uid) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.items[id]; !ok {
		return errs.New(errs.NotFound, "%s: id %s not found", l.path, id)
	}
	if err := l.appendRecord(newDeleteRecord(id)); err != nil {
		return err
	}
	delete(l.items, id)
	return nil
}

// Get returns the in-memory record for id, if present.
func (l *Log[T, PT]) Get(id types.Uid) (*T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.items[id]
	return v, ok
}

// All returns every record currently held, in unspecified order.
func (l *Log[T, PT]) All() []*T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*T, 0, len(l.items))
	for _, v := range l.items {
		out = append(out, v)
	}
	return out
}

// Len returns the number of live records.
func (l *Log[T, PT]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Close releases the file handle and the single-writer lock.
func (l *Log[T, PT]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errOut error
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			errOut = fmt.Errorf("closing %s: %w", l.path, err)
		}
	}
	if l.flock != nil {
		_ = l.flock.Unlock()
	}
	return errOut
}
