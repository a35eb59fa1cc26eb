package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/infumap/storage-core/internal/errs"
)

// ServerEntry names one remote or local storage-core instance a CLI user
// can switch between with the "context" command, mirroring how many CLIs
// let a user juggle multiple clusters/accounts.
type ServerEntry struct {
	Name    string `toml:"name"`
	DataDir string `toml:"data_dir"`
	Default bool   `toml:"default"`
}

// Servers is the parsed contents of .infumap/servers.toml.
type Servers struct {
	Server []ServerEntry `toml:"server"`
}

// ServersPath returns the default location of servers.toml relative to a
// home directory.
func ServersPath(homeDir string) string {
	return filepath.Join(homeDir, ".infumap", "servers.toml")
}

// LoadServers reads and parses servers.toml at path. A missing file is not
// an error: it means no additional contexts have been configured yet.
func LoadServers(path string) (*Servers, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Servers{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "reading %s", path)
	}
	var s Servers
	if _, err := toml.Decode(string(data), &s); err != nil {
		return nil, errs.Wrap(errs.InvalidArg, err, "parsing %s", path)
	}
	return &s, nil
}

// SaveServers writes s to path as TOML, creating parent directories as
// needed.
func SaveServers(path string, s *Servers) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.Io, err, "creating %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.Io, err, "creating %s", path)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(s); err != nil {
		return errs.Wrap(errs.Io, err, "encoding %s", path)
	}
	return nil
}

// Default returns the server entry marked default, if any.
func (s *Servers) Default() (ServerEntry, bool) {
	for _, e := range s.Server {
		if e.Default {
			return e, true
		}
	}
	return ServerEntry{}, false
}

// Find returns the named server entry.
func (s *Servers) Find(name string) (ServerEntry, bool) {
	for _, e := range s.Server {
		if e.Name == name {
			return e, true
		}
	}
	return ServerEntry{}, false
}
