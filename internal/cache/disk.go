package cache

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conneroisu/scriptlet/internal/errors"
)

const fragmentExt = ".frag"

// identitySanitizer strips everything outside the filesystem-safe set
// before a template identity is used in a path.
var identitySanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Disk is the persistent tier: one file per entry under the root
// directory, named from the sanitized identity and the content hash.
// Writes go to a temporary file followed by an atomic rename, so a
// concurrent reader sees either a complete entry or none at all.
type Disk struct {
	root string
}

// NewDisk opens the persistent tier at root, creating the directory if
// absent.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.NewCacheError(errors.ErrCodeCacheNotReady,
			"cannot create cache directory "+root, err)
	}
	return &Disk{root: root}, nil
}

// Sanitize reduces a template identity to the alphanumeric/underscore/
// hyphen set used in entry paths.
func Sanitize(identity string) string {
	return identitySanitizer.ReplaceAllString(identity, "")
}

// Key builds the composite cache key for (identity, hash).
func Key(identity, hash string) string {
	return Sanitize(identity) + "_" + hash
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.root, key+fragmentExt)
}

// Get returns the fragment persisted under key.
func (d *Disk) Get(key string) (string, bool) {
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set persists fragment under key with the write-temp-then-rename pattern.
func (d *Disk) Set(key, fragment string) error {
	tmp, err := os.CreateTemp(d.root, key+".tmp-*")
	if err != nil {
		return errors.NewCacheError(errors.ErrCodeCacheWrite, "cannot create temp entry", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(fragment); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewCacheError(errors.ErrCodeCacheWrite, "cannot write entry", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewCacheError(errors.ErrCodeCacheWrite, "cannot close entry", err)
	}
	if err := os.Rename(tmpName, d.path(key)); err != nil {
		os.Remove(tmpName)
		return errors.NewCacheError(errors.ErrCodeCacheWrite, "cannot publish entry", err)
	}
	return nil
}

// InvalidateIdentity removes every persisted entry for the given template
// identity, across all content hashes, and returns the number removed.
func (d *Disk) InvalidateIdentity(identity string) int {
	prefix := Sanitize(identity) + "_"

	names, err := os.ReadDir(d.root)
	if err != nil {
		return 0
	}
	removed := 0
	for _, de := range names {
		name := de.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fragmentExt) {
			continue
		}
		if os.Remove(filepath.Join(d.root, name)) == nil {
			removed++
		}
	}
	return removed
}

// Clear removes every persisted entry and returns the number removed.
func (d *Disk) Clear() int {
	names, err := os.ReadDir(d.root)
	if err != nil {
		return 0
	}
	removed := 0
	for _, de := range names {
		if !strings.HasSuffix(de.Name(), fragmentExt) {
			continue
		}
		if os.Remove(filepath.Join(d.root, de.Name())) == nil {
			removed++
		}
	}
	return removed
}

// Len returns the number of persisted entries.
func (d *Disk) Len() int {
	names, err := os.ReadDir(d.root)
	if err != nil {
		return 0
	}
	n := 0
	for _, de := range names {
		if strings.HasSuffix(de.Name(), fragmentExt) {
			n++
		}
	}
	return n
}

// Writable probes whether the tier can publish entries, using the same
// temp-file path writes take.
func (d *Disk) Writable() bool {
	tmp, err := os.CreateTemp(d.root, "probe-*")
	if err != nil {
		return false
	}
	name := tmp.Name()
	tmp.Close()
	os.Remove(name)
	return true
}

// Root returns the tier's directory.
func (d *Disk) Root() string { return d.root }
