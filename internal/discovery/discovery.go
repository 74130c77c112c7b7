package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/smallbiznis/vaultload/internal/config"
)

var (
	ErrNoMatch    = errors.New("no_matching_file")
	ErrNoDate     = errors.New("no_date_in_filename")
	ErrNotFound   = errors.New("file_not_found")
	ErrNoCSVFiles = errors.New("no_csv_files")
)

var (
	dayArg      = regexp.MustCompile(`^\d{8}$`)
	dateInName  = regexp.MustCompile(`(\d{4})[-_]?(\d{2})[-_]?(\d{2})`)
	defaultGlob = "*.csv"
)

// ProcessedChecker is the ledger lookup discovery needs.
type ProcessedChecker interface {
	IsProcessed(ctx context.Context, fileID string) (bool, error)
}

// Finder locates source files in the data directory.
type Finder struct {
	dir     string
	pattern string
}

func New(cfg config.Config) *Finder {
	return NewFinder(cfg.Pipeline.DataDir, cfg.Pipeline.FilePattern)
}

func NewFinder(dir, pattern string) *Finder {
	if strings.TrimSpace(pattern) == "" {
		pattern = defaultGlob
	}
	return &Finder{dir: dir, pattern: pattern}
}

func (f *Finder) Dir() string { return f.dir }

// Matches reports whether name fits the configured file pattern.
func (f *Finder) Matches(name string) bool {
	ok, err := filepath.Match(f.pattern, filepath.Base(name))
	return err == nil && ok
}

// Resolve maps a CLI argument to a file path. An 8 digit day selects the
// first file containing it, any other argument must name a dated file in the
// data directory, and an empty argument selects the latest file.
func (f *Finder) Resolve(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		files, err := f.List()
		if err != nil {
			return "", err
		}
		if len(files) == 0 {
			return "", fmt.Errorf("%w in %s", ErrNoCSVFiles, f.dir)
		}
		return files[len(files)-1], nil
	case dayArg.MatchString(arg):
		matches, err := filepath.Glob(filepath.Join(f.dir, "*"+arg+"*"+filepath.Ext(f.pattern)))
		if err != nil {
			return "", err
		}
		if len(matches) == 0 {
			return "", fmt.Errorf("%w for date %s", ErrNoMatch, arg)
		}
		sort.Strings(matches)
		return matches[0], nil
	default:
		name := filepath.Base(arg)
		if !dateInName.MatchString(name) {
			return "", fmt.Errorf("%w: %s", ErrNoDate, name)
		}
		full := filepath.Join(f.dir, name)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s in %s", ErrNotFound, name, f.dir)
		}
		return full, nil
	}
}

// List returns every matching file in lexical order.
func (f *Finder) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, f.pattern))
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Pending returns the listed files the ledger has not recorded.
func (f *Finder) Pending(ctx context.Context, ledger ProcessedChecker) ([]string, error) {
	files, err := f.List()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, path := range files {
		done, err := ledger.IsProcessed(ctx, FileID(path))
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", FileID(path), err)
		}
		if !done {
			out = append(out, path)
		}
	}
	return out, nil
}

// FileID identifies a source file in the ledger by its base name.
func FileID(path string) string {
	return filepath.Base(path)
}
