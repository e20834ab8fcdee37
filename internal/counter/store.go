package counter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Key identifies one persisted snapshot. Host, object type and instance
// name together make the partition key; Instance is empty for singleton
// object types.
type Key struct {
	Host     string
	Object   string
	Instance string
}

func (k Key) filename() string {
	parts := []string{"values", sanitize(k.Host), sanitize(k.Object)}
	if k.Instance != "" {
		parts = append(parts, sanitize(k.Instance))
	}
	return strings.Join(parts, "_") + ".json"
}

// sanitize makes one key component filesystem-safe without losing
// information. Every byte outside [A-Za-z0-9.-] is hex-escaped, "_"
// included, so joining components with "_" can never make two distinct
// keys collide.
func sanitize(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// Store persists the most recent raw snapshot per key to one JSON file
// each. Files are private per key, so the only write discipline needed is
// atomic replace-on-write.
type Store struct {
	dir string
}

// NewStore creates a snapshot store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Load returns the previous snapshot for key, or nil when none exists yet.
// A missing file is the normal first-run case, not an error.
func (s *Store) Load(key Key) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key.filename()))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot %v: %w", key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A corrupt file re-bootstraps the instance instead of wedging it.
		return nil, nil
	}
	return &snap, nil
}

// Save persists snap for key, replacing any previous snapshot atomically
// (write to temp file, then rename).
func (s *Store) Save(key Key, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %v: %w", key, err)
	}

	if err := writeAtomic(s.dir, key.filename(), data); err != nil {
		return fmt.Errorf("save snapshot %v: %w", key, err)
	}
	return nil
}

// writeAtomic replaces dir/name with data via a temp file and rename, so a
// kill mid-write never leaves a truncated document behind.
func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, name+".tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}
