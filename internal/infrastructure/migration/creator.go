package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	fileNamePattern = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)
	nameCleaner     = regexp.MustCompile(`[^a-z0-9]+`)
)

// Entry is one migration found in a source
type Entry struct {
	Version uint
	Name    string
	HasUp   bool
	HasDown bool
}

// Complete reports whether both directions exist
func (e Entry) Complete() bool {
	return e.HasUp && e.HasDown
}

// List returns the migrations in fsys ordered by version. Files not named
// like 000001_name.up.sql are ignored.
func List(fsys fs.FS) ([]Entry, error) {
	dirEntries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[uint]*Entry)
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		match := fileNamePattern.FindStringSubmatch(de.Name())
		if match == nil {
			continue
		}
		v, err := strconv.ParseUint(match[1], 10, 32)
		if err != nil {
			continue
		}
		e, ok := byVersion[uint(v)]
		if !ok {
			e = &Entry{Version: uint(v), Name: match[2]}
			byVersion[uint(v)] = e
		}
		if match[3] == "up" {
			e.HasUp = true
		} else {
			e.HasDown = true
		}
	}

	out := make([]Entry, 0, len(byVersion))
	for _, e := range byVersion {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Created describes a new migration file pair
type Created struct {
	Version  uint
	UpPath   string
	DownPath string
}

// Create writes an empty up/down pair numbered after the newest migration in dir
func Create(dir, name string) (*Created, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := List(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	var version uint = 1
	if n := len(existing); n > 0 {
		version = existing[n-1].Version + 1
	}

	base := fmt.Sprintf("%06d_%s", version, slug)
	c := &Created{
		Version:  version,
		UpPath:   filepath.Join(dir, base+".up.sql"),
		DownPath: filepath.Join(dir, base+".down.sql"),
	}
	header := fmt.Sprintf("-- %s (%s)\n", slug, time.Now().UTC().Format(time.DateOnly))

	if err := os.WriteFile(c.UpPath, []byte(header), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", c.UpPath, err)
	}
	if err := os.WriteFile(c.DownPath, []byte(header), 0o644); err != nil {
		_ = os.Remove(c.UpPath)
		return nil, fmt.Errorf("failed to write %s: %w", c.DownPath, err)
	}
	return c, nil
}

func sanitizeName(name string) string {
	return strings.Trim(nameCleaner.ReplaceAllString(strings.ToLower(name), "_"), "_")
}
