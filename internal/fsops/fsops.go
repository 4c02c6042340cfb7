// Package fsops implements the filesystem capabilities: bounded reads,
// overwriting writes, partial-failure tolerant listings, and glob/grep
// search. Every failure is classified before it crosses the package
// boundary; no raw I/O error escapes unwrapped.
package fsops

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/fault"
)

// Ops performs validated filesystem operations. The zero value with a
// nop logger is usable.
type Ops struct {
	Logger zerolog.Logger
}

// Read returns the file content, optionally sliced to a line window.
// offsetLine is 1-based; limitLines bounds the number of lines returned.
// Zero for either means "not supplied". The full text is returned
// verbatim when neither is given; otherwise the selected lines are
// joined with newlines.
func (o *Ops) Read(path string, offsetLine, limitLines int) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fault.Newf(fault.CodeNotFound, "file %s does not exist", path)
		}
		return "", fault.Wrap(fault.CodeNotReadable, "stat "+path, err)
	}
	if info.IsDir() {
		return "", fault.Newf(fault.CodeNotReadable, "%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fault.Wrap(fault.CodeNotReadable, "reading "+path, err)
	}
	text := string(data)

	if offsetLine == 0 && limitLines == 0 {
		return text, nil
	}

	lines := strings.Split(text, "\n")
	start := 0
	if offsetLine > 0 {
		if offsetLine > len(lines) {
			return "", fault.Newf(fault.CodeOffsetOutOfRange,
				"offset_line %d exceeds file length of %d lines", offsetLine, len(lines))
		}
		start = offsetLine - 1
	}
	end := len(lines)
	if limitLines > 0 && start+limitLines < end {
		end = start + limitLines
	}
	return strings.Join(lines[start:end], "\n"), nil
}

// Write stores content at path, creating parent directories as needed
// and fully overwriting any existing file. The write is not atomic; a
// crash mid-write can leave a truncated file.
func (o *Ops) Write(path, content string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, fault.Wrap(fault.CodeNotReadable, "creating parent directory for "+path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		return 0, fault.Wrap(fault.CodeNotReadable, "writing "+path, err)
	}
	o.Logger.Debug().Str("path", path).Int("bytes", len(content)).Msg("file written")
	return len(content), nil
}

// Entry describes one child of a listed directory. When the child's
// metadata could not be read, Err carries the reason and the remaining
// fields other than Name and Path are zero.
type Entry struct {
	Name    string
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
	Err     string
}

// List returns the children of a directory. A failure to stat one child
// degrades that entry to a partial record; it never fails the listing.
func (o *Ops) List(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.Newf(fault.CodeNotFound, "directory %s does not exist", path)
		}
		return nil, fault.Wrap(fault.CodeNotReadable, "stat "+path, err)
	}
	if !info.IsDir() {
		return nil, fault.Newf(fault.CodeNotADirectory, "%s is not a directory", path)
	}

	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, fault.Wrap(fault.CodeNotReadable, "listing "+path, err)
	}
	return collectEntries(path, dirents), nil
}

// collectEntries stats each directory entry, tolerating per-entry
// failures.
func collectEntries(dir string, dirents []fs.DirEntry) []Entry {
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		full := filepath.Join(dir, d.Name())
		fi, err := d.Info()
		if err != nil {
			entries = append(entries, Entry{Name: d.Name(), Path: full, Err: err.Error()})
			continue
		}
		entries = append(entries, Entry{
			Name:    d.Name(),
			Path:    full,
			IsDir:   fi.IsDir(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return entries
}

// Glob returns the absolute paths under root whose root-relative path
// matches pattern. Patterns support doublestar syntax ("**/*.go").
// Zero matches is a success with an empty slice, distinct from a bad
// pattern or a missing root.
func (o *Ops) Glob(pattern, root string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fault.Newf(fault.CodeInvalidPattern, "glob pattern %q is malformed", pattern)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fault.Wrap(fault.CodeNotReadable, "resolving "+root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.Newf(fault.CodeNotFound, "directory %s does not exist", root)
		}
		return nil, fault.Wrap(fault.CodeNotReadable, "stat "+root, err)
	}
	if !info.IsDir() {
		return nil, fault.Newf(fault.CodeNotADirectory, "%s is not a directory", root)
	}

	matches, err := doublestar.Glob(os.DirFS(absRoot), pattern)
	if err != nil {
		return nil, fault.Wrap(fault.CodeInvalidPattern, "glob pattern "+pattern, err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(absRoot, filepath.FromSlash(m)))
	}
	sort.Strings(paths)
	return paths, nil
}
