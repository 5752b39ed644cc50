package ingestcmder

import (
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/papercomputeco/glyph/pkg/dotdir"
	"github.com/papercomputeco/glyph/server"
)

// maxFileSize skips anything larger; embedding models truncate long input.
const maxFileSize = 1 << 20

var skipDirs = map[string]bool{
	".git":         true,
	dotdir.DirName: true,
	"node_modules": true,
}

// syntheticDocs yields n generated documents.
func syntheticDocs(n uint) iter.Seq[server.IndexRequest] {
	return func(yield func(server.IndexRequest) bool) {
		for i := uint(1); i <= n; i++ {
			req := server.IndexRequest{
				DocumentID: fmt.Sprintf("doc_%d", i),
				Text:       fmt.Sprintf("This is the content for document number %d. It is a sample text to test the embedding model.", i),
			}
			if !yield(req) {
				return
			}
		}
	}
}

type fileDoc struct {
	path string
	info os.FileInfo
}

// collectFiles walks paths and returns every regular file small enough to
// send. Explicitly named files are always included.
func collectFiles(paths []string) ([]fileDoc, error) {
	var files []fileDoc
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.Size() > maxFileSize {
				return nil
			}
			files = append(files, fileDoc{path: filepath.Clean(path), info: info})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}
	return files, nil
}

func (f fileDoc) request() (server.IndexRequest, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return server.IndexRequest{}, false, err
	}
	if !utf8.Valid(data) {
		return server.IndexRequest{}, false, nil
	}
	return server.IndexRequest{
		DocumentID: f.path,
		Text:       string(data),
		Metadata: map[string]string{
			"path": f.path,
			"size": strconv.FormatInt(f.info.Size(), 10),
		},
	}, true, nil
}

// fileRequests reads files lazily so only in-flight documents are held in
// memory. Unreadable and binary files are skipped.
func fileRequests(files []fileDoc, logger *slog.Logger) iter.Seq[server.IndexRequest] {
	return func(yield func(server.IndexRequest) bool) {
		for _, f := range files {
			req, ok, err := f.request()
			if err != nil {
				logger.Warn("skipping unreadable file", "path", f.path, "error", err)
				continue
			}
			if !ok {
				logger.Debug("skipping binary file", "path", f.path)
				continue
			}
			if !yield(req) {
				return
			}
		}
	}
}
