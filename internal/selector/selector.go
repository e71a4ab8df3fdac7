// Package selector picks which workspace files are worth showing to the
// analysis model and serializes them into a single prompt-ready context
// block. Selection is deterministic: the same entries and limits always
// produce the same text.
package selector

import (
	"path"
	"sort"
	"strings"

	"zipsight/internal/archive"
)

const (
	// DefaultMaxFiles caps how many files make it into one context.
	DefaultMaxFiles = 30
	// DefaultMaxCharsPerFile caps how much of each file is included.
	DefaultMaxCharsPerFile = 5000
)

// blockSeparator sits between two serialized file blocks: a blank line,
// a "---" line, and another blank line. There is no trailing separator.
const blockSeparator = "\n\n---\n\n"

// allowedExtensions is the source-file allow list. Matching is by name
// suffix only; a .min.js bundle or a renamed binary slips through, which
// is accepted as the cost of staying content-agnostic.
var allowedExtensions = map[string]struct{}{
	".ts":   {},
	".tsx":  {},
	".js":   {},
	".jsx":  {},
	".json": {},
	".html": {},
	".css":  {},
	".md":   {},
	".txt":  {},
	".py":   {},
	".rb":   {},
	".go":   {},
	".java": {},
	".c":    {},
	".cpp":  {},
	".rs":   {},
	".php":  {},
}

// Limits bounds the size of a built context. Zero or negative values
// fall back to the defaults.
type Limits struct {
	MaxFiles        int
	MaxCharsPerFile int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFiles:        DefaultMaxFiles,
		MaxCharsPerFile: DefaultMaxCharsPerFile,
	}
}

func (l Limits) withDefaults() Limits {
	if l.MaxFiles <= 0 {
		l.MaxFiles = DefaultMaxFiles
	}
	if l.MaxCharsPerFile <= 0 {
		l.MaxCharsPerFile = DefaultMaxCharsPerFile
	}
	return l
}

// Context is the serialized selection handed to the model.
type Context struct {
	// Text is the full serialized context, empty when nothing was selected.
	Text string
	// Files lists the paths that made it in, in serialization order.
	Files []string
	// Dropped counts eligible files that did not fit under MaxFiles.
	Dropped int
}

// Build filters entries down to eligible source files, keeps the first
// MaxFiles in path order, and serializes them. It never fails: malformed
// or unexpected entries are simply not selected.
func Build(entries []archive.Entry, lim Limits) Context {
	lim = lim.withDefaults()

	eligible := make([]archive.Entry, 0, len(entries))
	for _, e := range entries {
		if Eligible(e) {
			eligible = append(eligible, e)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Path < eligible[j].Path
	})

	dropped := 0
	if len(eligible) > lim.MaxFiles {
		dropped = len(eligible) - lim.MaxFiles
		eligible = eligible[:lim.MaxFiles]
	}

	var b strings.Builder
	files := make([]string, 0, len(eligible))
	for i, e := range eligible {
		if i > 0 {
			b.WriteString(blockSeparator)
		}
		b.WriteString("FILE: ")
		b.WriteString(e.Path)
		b.WriteString("\nCONTENT:\n")
		b.WriteString(head(e.Content, lim.MaxCharsPerFile))
		files = append(files, e.Path)
	}

	return Context{Text: b.String(), Files: files, Dropped: dropped}
}

// Eligible reports whether a single entry would be considered for
// selection: a file (not a directory) whose name carries one of the
// allowed source extensions, case-insensitively.
func Eligible(e archive.Entry) bool {
	if e.IsDirectory {
		return false
	}
	name := e.Name
	if name == "" {
		name = path.Base(e.Path)
	}
	ext := strings.ToLower(path.Ext(name))
	_, ok := allowedExtensions[ext]
	return ok
}

// head returns the first n bytes of s. Truncation is a plain byte
// prefix; a multi-byte rune on the boundary is cut mid-sequence.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
