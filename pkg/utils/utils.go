// Package utils holds the small helpers shared across packages.
package utils

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Switch is a concurrency-safe on/off flag, used for the global silent
// mode toggle.
type Switch struct {
	v atomic.Bool
}

func NewSwitch(on bool) *Switch {
	s := &Switch{}
	s.v.Store(on)
	return s
}

func (s *Switch) Set(on bool) { s.v.Store(on) }
func (s *Switch) On() bool    { return s.v.Load() }

// SanitizeFilename strips path separators and control characters so a
// platform-supplied name is safe to use on the local filesystem.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" || out == "." || out == ".." {
		return "file"
	}
	return out
}

// MediaDir returns the scratch directory for generated media (cropped
// photos and the like), creating it when missing. Files placed here are
// reaped by the scheduler's sweep.
func MediaDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "tomcat-media")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// CleanDir removes regular files in dir whose modification time is older
// than maxAge, returning how many were removed. Subdirectories are left
// alone.
func CleanDir(dir string, maxAge time.Duration, now time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			if os.Remove(filepath.Join(dir, e.Name())) == nil {
				removed++
			}
		}
	}
	return removed
}
