// Package files implements the jailed file manager. Every operation
// takes a user-supplied relative path and runs it through the pathguard
// resolver before touching the filesystem.
package files

import (
	"fmt"
	"os"
	"sort"
	"time"

	"docklite/internal/pathguard"
	"docklite/pkg/logger"
)

// MaxFileSize caps reads and writes through the file manager. Larger
// payloads belong in the site containers themselves, not in the panel.
const MaxFileSize = 10 << 20 // 10 MiB

// Entry is a single directory listing row.
type Entry struct {
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Identity carries who is operating on the jail.
type Identity struct {
	Username string
	IsAdmin  bool
}

// Service exposes list/read/write/mkdir/delete/move over the jail.
type Service struct {
	resolver *pathguard.Resolver
	log      *logger.Logger
}

func NewService(resolver *pathguard.Resolver) *Service {
	return &Service{
		resolver: resolver,
		log:      logger.GetLogger(),
	}
}

// List returns the entries of a directory inside the jail, directories
// first, each group sorted by name.
func (s *Service) List(relPath string, id Identity) ([]Entry, error) {
	res, err := s.resolve(relPath, true, id)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(res.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    d.Name(),
			IsDir:   d.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Read returns a file's content, capped at MaxFileSize.
func (s *Service) Read(relPath string, id Identity) ([]byte, error) {
	res, err := s.resolve(relPath, true, id)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(res.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", relPath)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("file exceeds %d byte limit", int64(MaxFileSize))
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Write creates or overwrites a file. The target itself may not exist
// yet; its parent directory must.
func (s *Service) Write(relPath string, content []byte, id Identity) error {
	if int64(len(content)) > MaxFileSize {
		return fmt.Errorf("content exceeds %d byte limit", int64(MaxFileSize))
	}

	res, err := s.resolve(relPath, false, id)
	if err != nil {
		return err
	}

	if err := os.WriteFile(res.Path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Mkdir creates a directory (and missing parents inside the jail).
func (s *Service) Mkdir(relPath string, id Identity) error {
	res, err := s.resolve(relPath, false, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(res.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Delete removes a file or directory tree.
func (s *Service) Delete(relPath string, id Identity) error {
	res, err := s.resolve(relPath, true, id)
	if err != nil {
		return err
	}
	if err := pathguard.AssertWithinBase(res.Path, res.Base); err != nil {
		return err
	}

	s.log.Info("Deleting path", "path", res.Path, "user", id.Username)
	if err := os.RemoveAll(res.Path); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Move renames a file or directory. Source and destination must
// resolve under the same jail base.
func (s *Service) Move(srcRel, dstRel string, id Identity) error {
	src, err := s.resolve(srcRel, true, id)
	if err != nil {
		return err
	}
	dst, err := s.resolve(dstRel, false, id)
	if err != nil {
		return err
	}
	if src.Base != dst.Base {
		return fmt.Errorf("cannot move across site roots")
	}
	if err := pathguard.AssertWithinBase(src.Path, src.Base); err != nil {
		return err
	}
	if err := pathguard.AssertWithinBase(dst.Path, dst.Base); err != nil {
		return err
	}

	if err := os.Rename(src.Path, dst.Path); err != nil {
		return fmt.Errorf("failed to move: %w", err)
	}
	return nil
}

func (s *Service) resolve(relPath string, mustExist bool, id Identity) (pathguard.Resolved, error) {
	// An empty path means the user's own root (or the jail root for
	// admins browsing everything).
	if relPath == "" || relPath == "." {
		if id.IsAdmin {
			relPath = "."
		} else {
			relPath = id.Username
		}
	}

	res, err := s.resolver.Resolve(relPath, mustExist)
	if err != nil {
		return pathguard.Resolved{}, err
	}
	if err := s.resolver.EnsureUserAccess(res, id.Username, id.IsAdmin); err != nil {
		return pathguard.Resolved{}, err
	}
	return res, nil
}
