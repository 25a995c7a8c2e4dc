package data

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// backupTimeFormat is embedded in backup file names and sorts
// lexicographically in chronological order.
const backupTimeFormat = "20060102T150405"

func (s *Store) backupName(t time.Time) string {
	return fmt.Sprintf("%s.corrupt-%s.bak", s.path, t.UTC().Format(backupTimeFormat))
}

// backupAndRemove copies the corrupt store file to a timestamped backup next
// to it and removes the original (plus WAL sidecar files) so a fresh store
// can be created in its place.
func (s *Store) backupAndRemove() error {
	backup := s.backupName(time.Now())
	if err := copyFile(s.path, backup); err != nil {
		return fmt.Errorf("failed to back up corrupt store: %w", err)
	}
	s.log.Info("backed up corrupt store file", "backup", backup)

	if err := os.Remove(s.path); err != nil {
		return fmt.Errorf("failed to remove corrupt store: %w", err)
	}
	// Stale WAL/shm sidecars would be replayed into the fresh file.
	os.Remove(s.path + "-wal")
	os.Remove(s.path + "-shm")
	return nil
}

// pruneBackups keeps only the backupKeep most recent corruption backups,
// judged by the timestamp embedded in the file name.
func (s *Store) pruneBackups() {
	prefix := filepath.Base(s.path) + ".corrupt-"
	dir := filepath.Dir(s.path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warn("failed to list backup directory", "dir", dir, "error", err)
		return
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			backups = append(backups, name)
		}
	}
	if len(backups) <= s.backupKeep {
		return
	}

	// Newest first; the embedded timestamp makes name order time order.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	for _, name := range backups[s.backupKeep:] {
		full := filepath.Join(dir, name)
		if err := os.Remove(full); err != nil {
			s.log.Warn("failed to prune old backup", "backup", full, "error", err)
			continue
		}
		s.log.Info("pruned old backup", "backup", full)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
