package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/haydenm/screenvault/pkg/logger"
	"github.com/labstack/gommon/random"
)

var (
	ErrFileNotFound  = errors.New("file does not exist")
	ErrEmptyFilename = errors.New("filename is empty after sanitization")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

	log = logger.Get("Uploads")
)

const stagingDirName = ".staging"

type (
	// Staged is an uploaded file that has been written to the staging area
	// but not yet published in to the storage root. Key is the generated
	// storage filename the file will be published under.
	Staged struct {
		Key         string
		DisplayName string

		path string
	}

	// Store owns the storage root: a flat directory of published files
	// addressed by storage key, plus a staging subdirectory for in-flight
	// uploads.
	Store struct {
		root    string
		staging string
	}
)

func NewStore(root string) (*Store, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %s: %w", root, err)
	}

	staging := filepath.Join(absRoot, stagingDirName)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", absRoot, err)
	}

	return &Store{root: absRoot, staging: staging}, nil
}

// SanitizeFilename reduces a user-supplied filename to a safe flat name:
// directory components are discarded and anything outside a conservative
// character set is collapsed. Returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == "/" {
		return ""
	}

	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	return name
}

// Extension returns the lowercased extension of the given filename without
// the leading dot, or "" when the name has none.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Stage writes the contents of src to the staging area and derives the
// storage key the file will be published under. Nothing is visible in the
// storage root until Publish succeeds.
func (store *Store) Stage(originalName string, src io.Reader) (*Staged, error) {
	display := SanitizeFilename(originalName)
	if display == "" {
		return nil, ErrEmptyFilename
	}

	ext := Extension(display)
	key := uuid.New().String()
	if ext != "" {
		key = key + "." + ext
	}

	path := filepath.Join(store.staging, "upload-"+random.String(12))
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file for %s: %w", display, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write staging file for %s: %w", display, err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to finalize staging file for %s: %w", display, err)
	}

	log.Debugf("Staged %s as %s\n", display, key)
	return &Staged{Key: key, DisplayName: display, path: path}, nil
}

// Publish atomically renames a staged file in to the storage root, making it
// resolvable under its storage key.
func (store *Store) Publish(staged *Staged) error {
	if err := os.Rename(staged.path, filepath.Join(store.root, staged.Key)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", staged.Key, err)
	}

	return nil
}

// Discard removes a staged file that will never be published. A missing
// staging file is tolerated.
func (store *Store) Discard(staged *Staged) {
	if err := os.Remove(staged.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Failed to discard staged file %s: %v\n", staged.Key, err)
	}
}

// Remove deletes a published file from the storage root. A file which is
// already absent is a no-op, not an error, so cleanup paths can retry safely.
func (store *Store) Remove(key string) error {
	if key == "" || SanitizeFilename(key) != key {
		return nil
	}

	if err := os.Remove(filepath.Join(store.root, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stored file %s: %w", key, err)
	}

	return nil
}

// Resolve maps a storage key to the absolute path of a published file, for
// serving. Keys which don't sanitize to themselves are rejected outright so
// a crafted request can never escape the storage root.
func (store *Store) Resolve(key string) (string, error) {
	if key == "" || key == stagingDirName || SanitizeFilename(key) != key {
		return "", ErrFileNotFound
	}

	path := filepath.Join(store.root, key)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrFileNotFound
	}

	return path, nil
}
