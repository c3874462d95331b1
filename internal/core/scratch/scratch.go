// Package scratch manages the transient download area. One area belongs to one process run;
// two runs pointed at the same directory are not supported.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Area is a scratch directory
type Area struct {
	dir string
}

// New returns an area rooted at dir. Nothing is created until Prepare.
func New(dir string) *Area {
	return &Area{dir: dir}
}

// Dir returns the scratch directory
func (a *Area) Dir() string {
	return a.dir
}

// Prepare creates the directory. Safe to call repeatedly.
func (a *Area) Prepare() error {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory %s: %w", a.dir, err)
	}
	return nil
}

// NewPath returns a fresh file path inside the area with the given extension
func (a *Area) NewPath(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(a.dir, uuid.NewString()+ext)
}

// Remove deletes one payload. A missing file is not an error.
func (a *Area) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove scratch file %s: %w", path, err)
	}
	return nil
}

// Sweep removes the whole area
func (a *Area) Sweep() error {
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("failed to sweep scratch directory %s: %w", a.dir, err)
	}
	return nil
}
