package capture

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// RetentionConfig bounds how many capture files of each kind are kept.
type RetentionConfig struct {
	MaxSnapshots  int
	MaxRecordings int
	Interval      time.Duration
}

// RunRetention sweeps the output directory on a fixed interval until the
// context is cancelled. The directory listing is the source of truth; files
// are sorted newest-first by modification time and everything beyond the
// configured maximum is deleted. A failed delete is logged and does not
// abort the rest of the sweep.
func (m *Manager) RunRetention(ctx context.Context, cfg RetentionConfig) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	slog.Info("retention sweeper started",
		"dir", m.cfg.Dir,
		"max_snapshots", cfg.MaxSnapshots,
		"max_recordings", cfg.MaxRecordings,
		"interval", cfg.Interval,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			m.Sweep(cfg)
		}
	}
}

// Sweep performs one retention pass for both file kinds.
func (m *Manager) Sweep(cfg RetentionConfig) {
	m.sweepKind(".jpg", cfg.MaxSnapshots)
	m.sweepKind(".wav", cfg.MaxRecordings)
}

func (m *Manager) sweepKind(ext string, max int) {
	infos, err := afero.ReadDir(m.fs, m.cfg.Dir)
	if err != nil {
		slog.Warn("retention listing failed", "dir", m.cfg.Dir, "error", err)
		return
	}

	var files []struct {
		name string
		mod  time.Time
	}
	for _, fi := range infos {
		if fi.IsDir() || !strings.EqualFold(filepath.Ext(fi.Name()), ext) {
			continue
		}
		files = append(files, struct {
			name string
			mod  time.Time
		}{fi.Name(), fi.ModTime()})
	}

	if len(files) <= max {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].mod.After(files[j].mod)
	})

	removed := 0
	for _, f := range files[max:] {
		path := filepath.Join(m.cfg.Dir, f.name)
		if err := m.fs.Remove(path); err != nil {
			slog.Warn("retention delete failed", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("retention sweep removed files", "kind", ext, "removed", removed, "kept", max)
	}
}
