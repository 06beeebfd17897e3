// Package loader reads raw SPL XML documents from a data directory, either as
// plain .xml files or packed in .zip archives, and can refresh that directory
// from a remote archive.
package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/giygas/spl-labels-api/interfaces"
	"github.com/giygas/spl-labels-api/logging"
)

const (
	// DefaultMaxDocumentSize bounds a single XML document, inside an archive or not
	DefaultMaxDocumentSize = 64 << 20
	// maxArchiveDepth bounds zip files nested inside zip files
	maxArchiveDepth = 2
)

// xmlDeclEncoding matches an encoding declared in the XML declaration
var xmlDeclEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*encoding\s*=\s*["']([A-Za-z0-9._\-]+)["']`)

// FileLoader implements interfaces.DocumentLoader over a directory on disk
type FileLoader struct {
	dir             string
	archiveURL      string
	client          *http.Client
	maxDocumentSize int64
}

var _ interfaces.DocumentLoader = (*FileLoader)(nil)

// NewFileLoader creates a loader for dir. When archiveURL is set, Load
// downloads it into dir before scanning.
func NewFileLoader(dir, archiveURL string) *FileLoader {
	return &FileLoader{
		dir:        dir,
		archiveURL: archiveURL,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		maxDocumentSize: DefaultMaxDocumentSize,
	}
}

// Dir returns the directory the loader scans
func (l *FileLoader) Dir() string {
	return l.dir
}

// Load refreshes the archive when one is configured, then reads every document of the data directory
func (l *FileLoader) Load(ctx context.Context) ([]interfaces.Source, error) {
	if l.archiveURL != "" {
		if _, err := l.FetchArchive(ctx); err != nil {
			// a stale local copy is still worth serving
			logging.Warn("Failed to refresh SPL archive, using local files", "url", l.archiveURL, "error", err)
		}
	}
	return l.LoadDirectory(ctx)
}

// LoadDirectory walks the data directory in lexical order
func (l *FileLoader) LoadDirectory(ctx context.Context) ([]interfaces.Source, error) {
	if _, err := os.Stat(l.dir); err != nil {
		return nil, fmt.Errorf("data directory %s: %w", l.dir, err)
	}

	var sources []interfaces.Source
	err := filepath.WalkDir(l.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(p)) {
		case ".xml":
			src, err := l.LoadFile(p)
			if err != nil {
				logging.Warn("Skipping unreadable SPL file", "path", p, "error", err)
				return nil
			}
			sources = append(sources, src)
		case ".zip":
			found, err := l.loadArchive(p)
			if err != nil {
				logging.Warn("Skipping unreadable archive", "path", p, "error", err)
				return nil
			}
			sources = append(sources, found...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", l.dir, err)
	}

	logging.Debug(fmt.Sprintf("%d SPL documents found in %s", len(sources), l.dir))
	return sources, nil
}

// LoadFile reads a single XML document
func (l *FileLoader) LoadFile(p string) (interfaces.Source, error) {
	info, err := os.Stat(p)
	if err != nil {
		return interfaces.Source{}, err
	}
	if info.Size() > l.maxDocumentSize {
		return interfaces.Source{}, fmt.Errorf("%s is larger than %d bytes", p, l.maxDocumentSize)
	}
	content, err := os.ReadFile(filepath.Clean(p))
	if err != nil {
		return interfaces.Source{}, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return interfaces.Source{Name: p, Content: NormalizeEncoding(content)}, nil
}

func (l *FileLoader) loadArchive(p string) ([]interfaces.Source, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logging.Warn("Failed to close archive", "path", p, "error", err)
		}
	}()
	return l.readZip(&r.Reader, p, 0)
}

func (l *FileLoader) readZip(r *zip.Reader, name string, depth int) ([]interfaces.Source, error) {
	files := make([]*zip.File, 0, len(r.File))
	files = append(files, r.File...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var sources []interfaces.Source
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		entryName := name + "!" + f.Name
		ext := strings.ToLower(path.Ext(f.Name))
		if ext != ".xml" && ext != ".zip" {
			continue
		}
		if f.UncompressedSize64 > uint64(l.maxDocumentSize) {
			logging.Warn("Skipping oversized archive entry", "entry", entryName, "size", f.UncompressedSize64)
			continue
		}

		content, err := readZipEntry(f, l.maxDocumentSize)
		if err != nil {
			logging.Warn("Skipping unreadable archive entry", "entry", entryName, "error", err)
			continue
		}

		if ext == ".zip" {
			if depth+1 >= maxArchiveDepth {
				logging.Warn("Skipping archive nested too deep", "entry", entryName)
				continue
			}
			nested, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
			if err != nil {
				logging.Warn("Skipping corrupt nested archive", "entry", entryName, "error", err)
				continue
			}
			found, err := l.readZip(nested, entryName, depth+1)
			if err != nil {
				return nil, err
			}
			sources = append(sources, found...)
			continue
		}
		sources = append(sources, interfaces.Source{Name: entryName, Content: NormalizeEncoding(content)})
	}
	return sources, nil
}

func readZipEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			logging.Warn("Failed to close archive entry", "entry", f.Name, "error", err)
		}
	}()
	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("entry is larger than %d bytes", limit)
	}
	return content, nil
}

// FetchArchive downloads the configured archive into the data directory and
// returns the path it was written to. The file is replaced atomically.
func (l *FileLoader) FetchArchive(ctx context.Context) (string, error) {
	if l.archiveURL == "" {
		return "", fmt.Errorf("no archive URL configured")
	}
	if err := os.MkdirAll(l.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.archiveURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid archive URL: %w", err)
	}
	response, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", l.archiveURL, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %d", l.archiveURL, response.StatusCode)
	}

	target := filepath.Join(l.dir, archiveFileName(l.archiveURL))
	tmp, err := os.CreateTemp(l.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	written, err := io.Copy(tmp, response.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("failed to move archive into place: %w", err)
	}

	logging.Info("SPL archive downloaded", "url", l.archiveURL, "path", target, "bytes", written)
	return target, nil
}

func archiveFileName(rawURL string) string {
	base := path.Base(strings.SplitN(rawURL, "?", 2)[0])
	if base == "" || base == "." || base == "/" {
		return "archive.zip"
	}
	if !strings.EqualFold(path.Ext(base), ".zip") {
		base += ".zip"
	}
	return base
}

// NormalizeEncoding transcodes documents that are neither valid UTF-8 nor
// declare their encoding, assuming ISO-8859-1. Documents that declare an
// encoding are left for the XML decoder.
func NormalizeEncoding(content []byte) []byte {
	if utf8.Valid(content) || xmlDeclEncoding.Match(content) {
		return content
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return content
	}
	return decoded
}
