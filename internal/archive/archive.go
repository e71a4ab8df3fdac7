// Package archive decodes uploaded zip archives into a flat, ordered list
// of entries. It is the only producer of Entry values; everything
// downstream treats them as read-only data.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"
)

// Entry is one record extracted from an uploaded archive. Directory
// entries carry no content.
type Entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Content     string `json:"content,omitempty"`
	IsDirectory bool   `json:"isDirectory"`
}

var (
	// ErrMalformed means the input bytes could not be decoded as a zip
	// archive. It propagates unchanged to the caller.
	ErrMalformed = errors.New("malformed archive")
	// ErrTooLarge means the archive exceeds a configured decode limit.
	ErrTooLarge = errors.New("archive too large")
)

// DecodeLimits bounds what Decode is willing to read.
type DecodeLimits struct {
	MaxEntries    int
	MaxEntryBytes int64
	MaxTotalBytes int64
}

func DefaultDecodeLimits() DecodeLimits {
	return DecodeLimits{
		MaxEntries:    10000,
		MaxEntryBytes: 10 << 20,
		MaxTotalBytes: 100 << 20,
	}
}

func (l DecodeLimits) withDefaults() DecodeLimits {
	def := DefaultDecodeLimits()
	if l.MaxEntries <= 0 {
		l.MaxEntries = def.MaxEntries
	}
	if l.MaxEntryBytes <= 0 {
		l.MaxEntryBytes = def.MaxEntryBytes
	}
	if l.MaxTotalBytes <= 0 {
		l.MaxTotalBytes = def.MaxTotalBytes
	}
	return l
}

const decodeWorkers = 8

// Decode reads a zip archive into entries sorted by path, case-sensitive
// ascending. Directory entries are emitted for explicit directory records
// and synthesized for implicit parents. Content is kept as raw bytes in a
// string; there is no charset or binary sniffing here.
func Decode(data []byte, lim DecodeLimits) ([]Entry, error) {
	lim = lim.withDefaults()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(zr.File) > lim.MaxEntries {
		return nil, fmt.Errorf("%w: %d entries (limit %d)", ErrTooLarge, len(zr.File), lim.MaxEntries)
	}

	type work struct {
		file *zip.File
		path string
	}
	var (
		files   []work
		dirs    = make(map[string]bool)
		claimed int64
	)
	for _, f := range zr.File {
		p, err := cleanPath(f.Name)
		if err != nil {
			return nil, err
		}
		if p == "" {
			continue
		}
		if f.FileInfo().IsDir() {
			dirs[p] = true
			continue
		}
		claimed += int64(f.UncompressedSize64)
		files = append(files, work{file: f, path: p})
	}
	if claimed > lim.MaxTotalBytes {
		return nil, fmt.Errorf("%w: %d bytes uncompressed (limit %d)", ErrTooLarge, claimed, lim.MaxTotalBytes)
	}

	contents := make([]string, len(files))
	errs := make([]error, len(files))
	p := pool.New().WithMaxGoroutines(decodeWorkers)
	for i, fw := range files {
		p.Go(func() {
			contents[i], errs[i] = readFile(fw.file, fw.path, lim.MaxEntryBytes)
		})
	}
	p.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Size headers in the central directory are untrusted; re-check what
	// was actually read.
	var total int64
	for _, c := range contents {
		total += int64(len(c))
	}
	if total > lim.MaxTotalBytes {
		return nil, fmt.Errorf("%w: %d bytes decoded (limit %d)", ErrTooLarge, total, lim.MaxTotalBytes)
	}

	// Later zip entries win on duplicate paths, matching extraction
	// semantics.
	fileEntries := make(map[string]Entry, len(files))
	for i, fw := range files {
		fileEntries[fw.path] = Entry{
			Name:    path.Base(fw.path),
			Path:    fw.path,
			Content: contents[i],
		}
	}

	// Synthesize implicit parent directories, then drop any directory
	// marker shadowed by a file at the same path.
	for p := range fileEntries {
		for d := path.Dir(p); d != "."; d = path.Dir(d) {
			dirs[d] = true
		}
	}
	explicit := make([]string, 0, len(dirs))
	for p := range dirs {
		explicit = append(explicit, p)
	}
	for _, p := range explicit {
		for d := path.Dir(p); d != "."; d = path.Dir(d) {
			dirs[d] = true
		}
	}
	for p := range dirs {
		if _, ok := fileEntries[p]; ok {
			delete(dirs, p)
		}
	}

	entries := make([]Entry, 0, len(fileEntries)+len(dirs))
	for _, e := range fileEntries {
		entries = append(entries, e)
	}
	for p := range dirs {
		entries = append(entries, Entry{Name: path.Base(p), Path: p, IsDirectory: true})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func readFile(f *zip.File, p string, maxEntryBytes int64) (string, error) {
	if int64(f.UncompressedSize64) > maxEntryBytes {
		return "", fmt.Errorf("%w: entry %s is %d bytes (limit %d)", ErrTooLarge, p, f.UncompressedSize64, maxEntryBytes)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrMalformed, p, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrMalformed, p, err)
	}
	if int64(len(raw)) > maxEntryBytes {
		return "", fmt.Errorf("%w: entry %s exceeds %d bytes", ErrTooLarge, p, maxEntryBytes)
	}
	return string(raw), nil
}

// cleanPath normalizes a zip entry name to a forward-slash, archive-relative
// path. Harmless empties ("." entries) come back as ""; hostile names
// (absolute paths, root escapes) fail with ErrMalformed.
func cleanPath(name string) (string, error) {
	raw := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(raw, "/") {
		return "", fmt.Errorf("%w: absolute entry path %q", ErrMalformed, name)
	}
	p := path.Clean(raw)
	if p == "." || p == "" {
		return "", nil
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%w: entry path escapes archive root: %q", ErrMalformed, name)
	}
	return p, nil
}
