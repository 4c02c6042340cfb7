package fsops

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wardenlabs/warden/internal/fault"
)

// Bounds for grep traversal. Oversized and unreadable files are skipped
// rather than failing the search.
const (
	maxGrepMatches  = 1000
	maxGrepFileSize = 10 << 20
	maxGrepLineSize = 1 << 20
)

// Grep searches file contents under root for a regular expression and
// returns "path:line:text" records. The pattern is compiled before any
// filesystem access, so a malformed pattern never touches the disk.
// include optionally restricts the files searched by glob ("*.go",
// "src/**/*.ts"). Zero matches is a success with an empty slice.
func (o *Ops) Grep(pattern, root, include string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fault.Wrap(fault.CodeInvalidPattern, "regex pattern "+pattern, err)
	}
	if include != "" && !doublestar.ValidatePattern(include) {
		return nil, fault.Newf(fault.CodeInvalidPattern, "include pattern %q is malformed", include)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fault.Wrap(fault.CodeNotReadable, "resolving "+root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.Newf(fault.CodeNotFound, "path %s does not exist", root)
		}
		return nil, fault.Wrap(fault.CodeNotReadable, "stat "+root, err)
	}

	if !info.IsDir() {
		return grepFile(re, absRoot, absRoot, nil), nil
	}

	var matches []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree: skip it, keep searching.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if include != "" && !includeMatches(include, absRoot, path) {
			return nil
		}
		matches = grepFile(re, path, absRoot, matches)
		if len(matches) >= maxGrepMatches {
			return fs.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return nil, fault.Wrap(fault.CodeNotReadable, "searching "+root, walkErr)
	}
	return matches, nil
}

// includeMatches applies the include glob: against the root-relative
// path when the glob spans directories, against the base name otherwise.
func includeMatches(include, root, path string) bool {
	var candidate string
	if strings.ContainsRune(include, '/') {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		candidate = filepath.ToSlash(rel)
	} else {
		candidate = filepath.Base(path)
	}
	ok, err := doublestar.Match(include, candidate)
	return err == nil && ok
}

// grepFile scans one file, appending matches. Files that cannot be
// opened or exceed the size bound are skipped silently; a search is
// partial-failure tolerant the same way a listing is.
func grepFile(re *regexp.Regexp, path, root string, matches []string) []string {
	fi, err := os.Stat(path)
	if err != nil || fi.Size() > maxGrepFileSize || !fi.Mode().IsRegular() {
		return matches
	}
	f, err := os.Open(path)
	if err != nil {
		return matches
	}
	defer f.Close()

	display := path
	if rel, err := filepath.Rel(root, path); err == nil && rel != "." {
		display = rel
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxGrepLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if re.MatchString(line) {
			matches = append(matches, fmt.Sprintf("%s:%d:%s", display, lineNo, line))
			if len(matches) >= maxGrepMatches {
				return matches
			}
		}
	}
	// Scanner errors (binary junk, oversized lines) end this file's
	// scan but not the search.
	return matches
}
