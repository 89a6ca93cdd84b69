package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilePersistence implements SnapshotPersistence with one JSON file per tab
type FilePersistence struct {
	sessionsDir string
}

// NewFilePersistence creates a new file-based snapshot store
func NewFilePersistence(sessionsDir string) (*FilePersistence, error) {
	// Create sessions directory if it doesn't exist
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{sessionsDir: sessionsDir}, nil
}

// Save writes the snapshot to <dir>/<tabID>.json. The file is replaced
// atomically so a reader never sees a partial write.
func (fp *FilePersistence) Save(ctx context.Context, tabID string, snap *PersistedSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if err := ValidateTabID(tabID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(fp.sessionsDir, tabID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fp.getFilePath(tabID)); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the snapshot of a tab
func (fp *FilePersistence) Load(ctx context.Context, tabID string) (*PersistedSnapshot, error) {
	if err := ValidateTabID(tabID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceMiss, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fp.getFilePath(tabID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceMiss, err)
	}
	return UnmarshalSnapshot(data)
}

// Delete removes a snapshot file
func (fp *FilePersistence) Delete(_ context.Context, tabID string) error {
	if err := ValidateTabID(tabID); err != nil {
		return err
	}

	if err := os.Remove(fp.getFilePath(tabID)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrTabNotFound
		}
		return fmt.Errorf("failed to remove snapshot file: %w", err)
	}
	return nil
}

// ListAll returns all tab ids with a snapshot file
func (fp *FilePersistence) ListAll(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var tabIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			tabIDs = append(tabIDs, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(tabIDs)

	return tabIDs, nil
}

// Exists checks if a snapshot file exists
func (fp *FilePersistence) Exists(_ context.Context, tabID string) bool {
	if ValidateTabID(tabID) != nil {
		return false
	}
	_, err := os.Stat(fp.getFilePath(tabID))
	return err == nil
}

// getFilePath returns the full file path for a tab ID
func (fp *FilePersistence) getFilePath(tabID string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", tabID))
}
