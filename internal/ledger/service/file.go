package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ledgerdomain "github.com/smallbiznis/vaultload/internal/ledger/domain"
)

// FileLedger is an append-only text file holding one file id per line.
type FileLedger struct {
	path string
	mu   sync.Mutex
}

func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

var _ ledgerdomain.Ledger = (*FileLedger)(nil)

// IsProcessed rereads the file on every call so appends from other
// processes are observed.
func (l *FileLedger) IsProcessed(ctx context.Context, fileID string) (bool, error) {
	if strings.TrimSpace(fileID) == "" {
		return false, ledgerdomain.ErrEmptyFileID
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	ids, err := l.read()
	if err != nil {
		return false, err
	}
	_, ok := ids[fileID]
	return ok, nil
}

func (l *FileLedger) MarkProcessed(ctx context.Context, entry ledgerdomain.Entry) error {
	fileID := strings.TrimSpace(entry.FileID)
	if fileID == "" || strings.ContainsAny(fileID, "\r\n") {
		return ledgerdomain.ErrEmptyFileID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := l.read()
	if err != nil {
		return err
	}
	if _, ok := ids[fileID]; ok {
		return nil
	}

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if _, err := f.WriteString(fileID + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	return f.Close()
}

// Entries returns the recorded file ids in append order.
func (l *FileLedger) Entries() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

func (l *FileLedger) read() (map[string]struct{}, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	ids := map[string]struct{}{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			ids[line] = struct{}{}
		}
	}
	return ids, sc.Err()
}
