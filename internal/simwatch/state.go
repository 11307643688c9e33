package simwatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/temirov/digiscripts/internal/filesystem"
)

const (
	lockFileSuffixConstant         = ".lock"
	lockRetryDelayConstant         = 100 * time.Millisecond
	stateFilePermissionsConstant   = 0o644
	stateDirectoryPermissions      = 0o755
	lockTimeoutMessageConstant     = "timed out waiting for SIM state lock"
	lockAcquireErrorTemplate       = "lock %s: %w"
	stateReadErrorTemplateConstant = "read SIM state %s: %w"
	stateWriteErrorTemplate        = "write SIM state %s: %w"
	stateDirectoryErrorTemplate    = "create SIM state directory %s: %w"
)

// ErrStateLockTimeout indicates another process held the state lock for too long.
var ErrStateLockTimeout = errors.New(lockTimeoutMessageConstant)

// StateStore persists the last seen ICCID in a plain text file guarded by a lock file.
type StateStore struct {
	fileSystem  filesystem.FileSystem
	path        string
	lockTimeout time.Duration
}

// NewStateStore constructs a StateStore for the provided path.
func NewStateStore(fileSystem filesystem.FileSystem, path string, lockTimeout time.Duration) *StateStore {
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeoutConstant
	}
	return &StateStore{fileSystem: fileSystem, path: path, lockTimeout: lockTimeout}
}

// Path reports the state file location.
func (store *StateStore) Path() string {
	return store.path
}

// WithLock runs the operation while holding the state lock.
func (store *StateStore) WithLock(lockContext context.Context, operation func() error) error {
	if directory := filepath.Dir(store.path); len(directory) > 0 {
		if mkdirError := store.fileSystem.MkdirAll(directory, stateDirectoryPermissions); mkdirError != nil {
			return fmt.Errorf(stateDirectoryErrorTemplate, directory, mkdirError)
		}
	}

	lockPath := store.path + lockFileSuffixConstant
	fileLock := flock.New(lockPath)

	timeoutContext, cancel := context.WithTimeout(lockContext, store.lockTimeout)
	defer cancel()

	locked, lockError := fileLock.TryLockContext(timeoutContext, lockRetryDelayConstant)
	if lockError != nil {
		if errors.Is(lockError, context.DeadlineExceeded) {
			return fmt.Errorf(lockAcquireErrorTemplate, lockPath, ErrStateLockTimeout)
		}
		return fmt.Errorf(lockAcquireErrorTemplate, lockPath, lockError)
	}
	if !locked {
		return fmt.Errorf(lockAcquireErrorTemplate, lockPath, ErrStateLockTimeout)
	}
	defer fileLock.Unlock()

	return operation()
}

// Read returns the stored ICCID and whether the state file exists.
func (store *StateStore) Read() (string, bool, error) {
	exists, existsError := filesystem.Exists(store.fileSystem, store.path)
	if existsError != nil {
		return "", false, fmt.Errorf(stateReadErrorTemplateConstant, store.path, existsError)
	}
	if !exists {
		return "", false, nil
	}

	contents, readError := store.fileSystem.ReadFile(store.path)
	if readError != nil {
		return "", true, fmt.Errorf(stateReadErrorTemplateConstant, store.path, readError)
	}
	return strings.TrimSpace(string(contents)), true, nil
}

// Write overwrites the state file with the ICCID.
func (store *StateStore) Write(iccid string) error {
	if writeError := store.fileSystem.WriteFile(store.path, []byte(iccid), stateFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(stateWriteErrorTemplate, store.path, writeError)
	}
	return nil
}
