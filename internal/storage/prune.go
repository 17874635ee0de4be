package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// PruneResult summarizes one spool sweep.
type PruneResult struct {
	Removed int
	Freed   int64
	Kept    int
}

// Prune removes regular files under the spool last modified before cutoff.
// Files for which keep returns true are left alone.
func (s *Spool) Prune(cutoff time.Time, keep func(path string) bool, log zerolog.Logger) PruneResult {
	var res PruneResult

	type fileEntry struct {
		path    string
		modTime time.Time
		size    int64
	}
	var files []fileEntry

	filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, fileEntry{path: path, modTime: info.ModTime(), size: info.Size()})
		return nil
	})

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		if !f.modTime.Before(cutoff) {
			continue
		}
		if keep != nil && keep(f.path) {
			res.Kept++
			continue
		}
		if err := os.Remove(f.path); err != nil {
			log.Warn().Err(err).Str("path", f.path).Msg("failed to remove stale spool file")
			continue
		}
		res.Removed++
		res.Freed += f.size
	}

	if res.Removed > 0 || res.Kept > 0 {
		log.Info().
			Int("removed", res.Removed).
			Str("freed", humanizeBytes(res.Freed)).
			Int("kept_in_use", res.Kept).
			Msg("spool prune complete")
	}
	return res
}

func humanizeBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
