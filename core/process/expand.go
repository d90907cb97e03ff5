package process

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/match"

	apperrors "github.com/FocuswithJustin/codemask/core/errors"
	"github.com/FocuswithJustin/codemask/core/marker"
	"github.com/FocuswithJustin/codemask/internal/logging"
)

// Expand resolves patterns to a sorted list of distinct regular files.
//
// A pattern is a file, a directory (walked recursively, skipping hidden
// directories) or a filepath.Match glob. A plain path that does not exist
// is an error; a glob matching nothing is not. Files matching any exclude
// pattern are dropped. Exclude patterns are matched against both the slash
// separated path and the base name, and their '*' also matches '/'.
//
// A file named by a plain path is always kept, so problems with it surface
// when it is processed. Files found by walking or globbing are kept only
// if they are text and contain a marker; the rest are skipped with a debug
// log.
func Expand(patterns, exclude []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string, named bool) {
		path = filepath.Clean(path)
		if seen[path] || excluded(path, exclude) {
			return
		}
		seen[path] = true
		if !named && !hasMarkers(path) {
			return
		}
		files = append(files, path)
	}

	for _, pattern := range patterns {
		var roots []string
		named := false
		if hasMeta(pattern) {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, apperrors.NewValidation("files", "bad pattern "+pattern+": "+err.Error())
			}
			roots = matches
		} else {
			if _, err := os.Stat(pattern); err != nil {
				if os.IsNotExist(err) {
					return nil, apperrors.NewNotFound("file", pattern)
				}
				return nil, apperrors.NewIO("stat", pattern, err)
			}
			roots = []string{pattern}
			named = true
		}

		for _, root := range roots {
			if err := walk(root, named, add); err != nil {
				return nil, err
			}
		}
	}

	slices.Sort(files)
	return files, nil
}

// walk adds root, or every regular file below it if it is a directory. Only
// root itself can count as named.
func walk(root string, named bool, add func(string, bool)) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			add(path, named && path == root)
		}
		return nil
	})
	if err != nil {
		return apperrors.NewIO("walk", root, err)
	}
	return nil
}

// hasMarkers reports whether a discovered file is worth processing.
func hasMarkers(path string) bool {
	data, _, err := readSource(path)
	if err != nil {
		logging.Debug("skipping file", "path", path, "reason", err.Error())
		return false
	}
	if !marker.Contains(string(data)) {
		logging.Debug("skipping file without markers", "path", path)
		return false
	}
	return true
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func excluded(path string, exclude []string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range exclude {
		if match.Match(slashed, pattern) || match.Match(base, pattern) {
			return true
		}
	}
	return false
}
