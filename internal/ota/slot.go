package ota

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// Target receives firmware images and remembers when the server was last
// asked for one.
type Target interface {
	// Begin starts writing an image of size bytes (-1 if unknown) to the
	// inactive slot. version is recorded once the image is activated.
	Begin(size int64, version string) (SlotWriter, error)
	// Installed returns the version of the last activated image, empty if
	// none was installed by an update.
	Installed() string
	LastQuery() time.Time
	MarkQuery(t time.Time) error
}

// SlotWriter streams one image. Complete verifies and activates it; Abort
// discards it. The active slot is untouched until Complete succeeds.
type SlotWriter interface {
	io.Writer
	Complete() error
	Abort() error
}

// Slot names.
const (
	SlotA = "a"
	SlotB = "b"
)

const (
	currentLink   = "current"
	activeFile    = "active"
	installedFile = "installed"
	lastQueryFile = "last-query"
)

// FileTarget keeps two image slots in a directory:
//
//	slot-a.bin, slot-b.bin  images
//	current                 symlink to the image the service executes
//	active                  name of the slot current points at
//	installed               version of the last activated image
//	last-query              RFC 3339 time of the last update query
//
// The service unit runs current, so an activated image is the one started
// after the restart. Every file is replaced atomically and synced before
// the rename.
type FileTarget struct {
	Dir string
}

// NewFileTarget returns a target rooted at dir.
func NewFileTarget(dir string) *FileTarget {
	return &FileTarget{Dir: dir}
}

// SlotPath returns the image path of slot.
func (t *FileTarget) SlotPath(slot string) string {
	return filepath.Join(t.Dir, slotFile(slot))
}

// CurrentPath returns the path of the boot link.
func (t *FileTarget) CurrentPath() string {
	return filepath.Join(t.Dir, currentLink)
}

func slotFile(slot string) string {
	return "slot-" + slot + ".bin"
}

// Active returns the slot the boot link points at. Without a link it falls
// back to the active marker, and to SlotA when the marker is missing, empty
// or damaged.
func (t *FileTarget) Active() (string, error) {
	if dest, err := os.Readlink(t.CurrentPath()); err == nil {
		switch filepath.Base(dest) {
		case slotFile(SlotA):
			return SlotA, nil
		case slotFile(SlotB):
			return SlotB, nil
		}
	}
	data, err := os.ReadFile(filepath.Join(t.Dir, activeFile))
	if errors.Is(err, fs.ErrNotExist) {
		return SlotA, nil
	}
	if err != nil {
		return "", fmt.Errorf("read active slot: %w", err)
	}
	switch s := strings.TrimSpace(string(data)); s {
	case SlotA, SlotB:
		return s, nil
	default:
		return SlotA, nil
	}
}

// Adopt installs exe as the active slot and points the boot link at it,
// unless the link already exists. It reports whether anything was written.
func (t *FileTarget) Adopt(exe string) (bool, error) {
	if _, err := os.Lstat(t.CurrentPath()); err == nil {
		return false, nil
	}
	active, err := t.Active()
	if err != nil {
		return false, err
	}
	src, err := os.Open(exe)
	if err != nil {
		return false, fmt.Errorf("open executable: %w", err)
	}
	defer src.Close()
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return false, fmt.Errorf("create slot dir: %w", err)
	}
	pf, err := renameio.NewPendingFile(t.SlotPath(active), renameio.WithPermissions(0o755))
	if err != nil {
		return false, fmt.Errorf("open slot %s: %w", active, err)
	}
	defer pf.Cleanup()
	if _, err := io.Copy(pf, src); err != nil {
		return false, fmt.Errorf("copy executable: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return false, fmt.Errorf("install slot %s: %w", active, err)
	}
	if err := t.activate(active); err != nil {
		return false, err
	}
	return true, nil
}

// Begin opens the inactive slot for writing.
func (t *FileTarget) Begin(size int64, version string) (SlotWriter, error) {
	active, err := t.Active()
	if err != nil {
		return nil, err
	}
	slot := SlotB
	if active == SlotB {
		slot = SlotA
	}
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create slot dir: %w", err)
	}
	pf, err := renameio.NewPendingFile(t.SlotPath(slot), renameio.WithPermissions(0o755))
	if err != nil {
		return nil, fmt.Errorf("open slot %s: %w", slot, err)
	}
	return &fileSlot{target: t, slot: slot, version: version, f: pf, size: size}, nil
}

// Installed returns the version recorded by the last activation.
func (t *FileTarget) Installed() string {
	data, err := os.ReadFile(filepath.Join(t.Dir, installedFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// LastQuery returns the time of the last query, zero if unknown.
func (t *FileTarget) LastQuery() time.Time {
	data, err := os.ReadFile(filepath.Join(t.Dir, lastQueryFile))
	if err != nil {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}
	}
	return ts
}

// MarkQuery records the time of a query.
func (t *FileTarget) MarkQuery(ts time.Time) error {
	return t.replace(lastQueryFile, []byte(ts.UTC().Format(time.RFC3339)))
}

// activate points the boot link and the marker at slot.
func (t *FileTarget) activate(slot string) error {
	if err := renameio.Symlink(slotFile(slot), t.CurrentPath()); err != nil {
		return fmt.Errorf("link slot %s: %w", slot, err)
	}
	if err := t.replace(activeFile, []byte(slot)); err != nil {
		return fmt.Errorf("mark slot %s: %w", slot, err)
	}
	return nil
}

func (t *FileTarget) replace(name string, data []byte) error {
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(t.Dir, name), data, 0o644)
}

type fileSlot struct {
	target  *FileTarget
	slot    string
	version string
	f       *renameio.PendingFile
	size    int64
	n       int64
}

func (s *fileSlot) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	s.n += int64(n)
	return n, err
}

func (s *fileSlot) Complete() error {
	if s.size >= 0 && s.n != s.size {
		s.Abort()
		return fmt.Errorf("image is %d bytes, want %d", s.n, s.size)
	}
	if s.n == 0 {
		s.Abort()
		return errors.New("empty image")
	}
	if err := s.f.CloseAtomicallyReplace(); err != nil {
		s.Abort()
		return fmt.Errorf("install slot %s: %w", s.slot, err)
	}
	if err := s.target.activate(s.slot); err != nil {
		return fmt.Errorf("activate slot %s: %w", s.slot, err)
	}
	if err := s.target.replace(installedFile, []byte(s.version)); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return nil
}

func (s *fileSlot) Abort() error {
	return s.f.Cleanup()
}
