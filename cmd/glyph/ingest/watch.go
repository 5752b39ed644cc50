package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/glyph/pkg/dotdir"
	"github.com/papercomputeco/glyph/server"
)

// watchDebounce batches bursts of write events into one stream.
const watchDebounce = 300 * time.Millisecond

// fileSyncer sends files whose size or modification time differs from the
// version last acknowledged as indexed, and records the new versions.
type fileSyncer struct {
	st        *streamer
	ddm       *dotdir.Manager
	configDir string
	state     *dotdir.IngestState
}

func newFileSyncer(st *streamer, configDir string) (*fileSyncer, error) {
	ddm := dotdir.NewManager()
	state, err := ddm.LoadIngestState(configDir)
	if err != nil {
		return nil, err
	}
	return &fileSyncer{st: st, ddm: ddm, configDir: configDir, state: state}, nil
}

func stateKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func (s *fileSyncer) sync(ctx context.Context, files []fileDoc) (Summary, error) {
	byID := make(map[string]fileDoc, len(files))
	changed := make([]fileDoc, 0, len(files))
	for _, f := range files {
		if !s.state.Changed(stateKey(f.path), f.info) {
			continue
		}
		byID[f.path] = f
		changed = append(changed, f)
	}
	if len(changed) == 0 {
		return Summary{}, nil
	}

	// state is only touched by the receiving goroutine until stream returns.
	s.st.onAck = func(resp *server.IndexResponse) {
		if f, ok := byID[resp.DocumentID]; ok && resp.Success {
			s.state.Record(stateKey(f.path), f.info)
		}
	}
	defer func() { s.st.onAck = nil }()

	summary, err := s.st.stream(ctx, fileRequests(changed, s.st.logger))
	if saveErr := s.ddm.SaveIngestState(s.state, s.configDir); saveErr != nil {
		return summary, errors.Join(err, saveErr)
	}
	return summary, err
}

func (c *ingestCommander) runWatch(ctx context.Context, st *streamer) error {
	syncer, err := newFileSyncer(st, c.configDir)
	if err != nil {
		return err
	}

	files, err := collectFiles(c.paths)
	if err != nil {
		return err
	}
	summary, err := syncer.sync(ctx, files)
	if err != nil {
		return err
	}
	if summary.Sent > 0 {
		printSummary(c.out, summary)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	roots := make([]string, 0, len(c.paths))
	for _, p := range c.paths {
		roots = append(roots, stateKey(p))
		if err := watchTree(watcher, p); err != nil {
			return err
		}
	}

	c.logger.Info("watching for changes", "paths", c.paths)

	pending := map[string]struct{}{}
	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !underRoots(stateKey(event.Name), roots) {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if skipDirs[filepath.Base(event.Name)] {
					continue
				}
				if err := watchTree(watcher, event.Name); err != nil {
					c.logger.Warn("could not watch new directory", "path", event.Name, "error", err)
				}
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			timer.Reset(watchDebounce)

		case <-timer.C:
			files := make([]fileDoc, 0, len(pending))
			for path := range pending {
				info, err := os.Stat(path)
				if err != nil || !info.Mode().IsRegular() || info.Size() > maxFileSize {
					continue
				}
				files = append(files, fileDoc{path: path, info: info})
			}
			clear(pending)

			summary, err := syncer.sync(ctx, files)
			if err != nil {
				c.logger.Error("sync failed", "error", err)
				continue
			}
			if summary.Sent > 0 {
				printSummary(c.out, summary)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// watchTree adds root and every directory below it. For a file root the
// parent directory is watched.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func underRoots(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
