// Package files reads and writes managed files on the host.
package files

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/zeebo/blake3"
)

// Desired is the target state of a managed file.
type Desired struct {
	Content []byte
	// Mode is applied when non-zero.
	Mode  fs.FileMode
	Owner string
	Group string
}

// Match describes how the current file differs from Desired.
type Match struct {
	Exists  bool
	Content bool
	Mode    bool
	Owner   bool
	Current []byte
}

// Satisfied reports whether every aspect matches.
func (m Match) Satisfied() bool {
	return m.Exists && m.Content && m.Mode && m.Owner
}

// Store performs file operations. The zero value uses the host's user database.
type Store struct {
	lookupUID func(name string) (int, error)
	lookupGID func(name string) (int, error)
}

// NewStore returns a Store backed by os/user lookups.
func NewStore() *Store {
	return &Store{lookupUID: lookupUID, lookupGID: lookupGID}
}

// Fingerprint returns the hex BLAKE3 digest of data.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Read returns the file content, or ok=false when the file does not exist.
func (s *Store) Read(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, true, nil
}

// Matches compares the file at path with want without modifying it.
func (s *Store) Matches(path string, want Desired) (Match, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Match{}, nil
	}
	if err != nil {
		return Match{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Match{}, fmt.Errorf("%s is a directory", path)
	}

	current, err := os.ReadFile(path)
	if err != nil {
		return Match{}, fmt.Errorf("read %s: %w", path, err)
	}

	m := Match{Exists: true, Current: current, Mode: true, Owner: true}
	m.Content = len(current) == len(want.Content) && Fingerprint(current) == Fingerprint(want.Content)
	if want.Mode != 0 {
		m.Mode = info.Mode().Perm() == want.Mode.Perm()
	}

	ownerOK, err := s.ownerMatches(info, want)
	if err != nil {
		return Match{}, err
	}
	m.Owner = ownerOK
	return m, nil
}

// Write replaces path with want atomically: a temp file in the same directory
// is written, chmod/chown applied, then renamed over the target.
func (s *Store) Write(path string, want Desired) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".vpsctl-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(want.Content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	mode := want.Mode
	if mode == 0 {
		mode = 0o644
		if info, err := os.Stat(path); err == nil {
			mode = info.Mode().Perm()
		}
	}
	if err := os.Chmod(tmpName, mode.Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := s.chown(tmpName, want); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

func (s *Store) ownerMatches(info fs.FileInfo, want Desired) (bool, error) {
	if want.Owner == "" && want.Group == "" {
		return true, nil
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false, fmt.Errorf("ownership not available for %s", info.Name())
	}
	if want.Owner != "" {
		uid, err := s.uid(want.Owner)
		if err != nil {
			return false, err
		}
		if int(stat.Uid) != uid {
			return false, nil
		}
	}
	if want.Group != "" {
		gid, err := s.gid(want.Group)
		if err != nil {
			return false, err
		}
		if int(stat.Gid) != gid {
			return false, nil
		}
	}
	return true, nil
}

func (s *Store) chown(path string, want Desired) error {
	if want.Owner == "" && want.Group == "" {
		return nil
	}
	uid, gid := -1, -1
	var err error
	if want.Owner != "" {
		if uid, err = s.uid(want.Owner); err != nil {
			return err
		}
	}
	if want.Group != "" {
		if gid, err = s.gid(want.Group); err != nil {
			return err
		}
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}

func (s *Store) uid(name string) (int, error) {
	lookup := s.lookupUID
	if lookup == nil {
		lookup = lookupUID
	}
	return lookup(name)
}

func (s *Store) gid(name string) (int, error) {
	lookup := s.lookupGID
	if lookup == nil {
		lookup = lookupGID
	}
	return lookup(name)
}

func lookupUID(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, fmt.Errorf("lookup user %s: %w", name, err)
	}
	return strconv.Atoi(u.Uid)
}

func lookupGID(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, fmt.Errorf("lookup group %s: %w", name, err)
	}
	return strconv.Atoi(g.Gid)
}
