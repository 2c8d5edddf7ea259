// Package store persists one reference image per identity on the local filesystem.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/rs/zerolog"
)

// ErrUnavailable is returned when the store directory cannot be read or written.
var ErrUnavailable = errors.New("store unavailable")

// Entry is a stored identity image.
type Entry struct {
	Name     string    `json:"name"`
	ImageRef string    `json:"image_ref"`
	Path     string    `json:"-"`
	ModTime  time.Time `json:"mod_time"`
}

// DiskStore keeps identity images as <name>.jpg files in a single directory.
type DiskStore struct {
	root   string
	logger zerolog.Logger
}

// NewDiskStore creates the store, creating its directory when missing.
func NewDiskStore(root string, logger zerolog.Logger) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty directory", ErrUnavailable)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", ErrUnavailable, root, err)
	}
	return &DiskStore{
		root:   root,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Root returns the store directory.
func (s *DiskStore) Root() string {
	return s.root
}

// Load lists stored identities in file name order. Files that are not identity
// images are skipped. When several files map to the same name, the most recently
// modified one is returned at the position of the first.
func (s *DiskStore) Load() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrUnavailable, s.root, err)
	}

	var entries []Entry
	index := make(map[string]int)
	for _, de := range dirEntries {
		fileName := de.Name()
		if de.IsDir() || strings.HasPrefix(fileName, ".") {
			continue
		}
		name, ok := NameFromFile(fileName)
		if !ok {
			continue
		}
		name, err := gallery.SanitizeName(name)
		if err != nil {
			s.logger.Warn().Str("file", fileName).Err(err).Msg("skipping stored image with invalid name")
			continue
		}
		info, err := de.Info()
		if err != nil {
			s.logger.Warn().Str("file", fileName).Err(err).Msg("skipping unreadable stored image")
			continue
		}

		entry := Entry{
			Name:     name,
			ImageRef: fileName,
			Path:     filepath.Join(s.root, fileName),
			ModTime:  info.ModTime(),
		}
		if i, seen := index[name]; seen {
			s.logger.Warn().Str("name", name).Str("file", fileName).Str("other", entries[i].ImageRef).
				Msg("multiple stored images for one name, keeping the newest")
			if entry.ModTime.After(entries[i].ModTime) {
				entries[i] = entry
			}
			continue
		}
		index[name] = len(entries)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Persist atomically writes the image for name and removes any older variants
// stored under the same name. Returns the image reference of the written file.
func (s *DiskStore) Persist(name string, image []byte) (string, error) {
	name, err := gallery.SanitizeName(name)
	if err != nil {
		return "", err
	}

	imageRef := name + constants.ImageExtension
	path := filepath.Join(s.root, imageRef)
	if err := renameio.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("%w: writing %s: %w", ErrUnavailable, imageRef, err)
	}

	if err := s.removeVariants(name, imageRef); err != nil {
		s.logger.Warn().Str("name", name).Err(err).Msg("failed to remove older images")
	}

	s.logger.Debug().Str("name", name).Str("file", imageRef).Int("bytes", len(image)).Msg("image persisted")
	return imageRef, nil
}

// removeVariants deletes files such as name_1699999999.jpg left by earlier versions.
func (s *DiskStore) removeVariants(name, keep string) error {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return err
	}
	var errs []error
	for _, de := range dirEntries {
		fileName := de.Name()
		if de.IsDir() || fileName == keep || strings.HasPrefix(fileName, ".") {
			continue
		}
		if n, ok := NameFromFile(fileName); ok && n == name {
			if err := os.Remove(filepath.Join(s.root, fileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Path resolves an image reference to a path inside the store directory.
func (s *DiskStore) Path(imageRef string) (string, error) {
	if imageRef == "" || imageRef != filepath.Base(imageRef) || strings.Contains(imageRef, "..") ||
		strings.ContainsAny(imageRef, `/\`) {
		return "", fmt.Errorf("invalid image reference: %q", imageRef)
	}
	return filepath.Join(s.root, imageRef), nil
}

// Read returns the bytes of a stored image.
func (s *DiskStore) Read(imageRef string) ([]byte, error) {
	path, err := s.Path(imageRef)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path validated by Path
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", imageRef, err)
	}
	return data, nil
}

// NameFromFile derives the identity name from a stored file name: the part of
// the stem before the first delimiter. Returns false for non-image files.
func NameFromFile(fileName string) (string, bool) {
	ext := filepath.Ext(fileName)
	if !strings.EqualFold(ext, constants.ImageExtension) {
		return "", false
	}
	stem := strings.TrimSuffix(fileName, ext)
	name, _, _ := strings.Cut(stem, constants.NameDelimiter)
	if name == "" {
		return "", false
	}
	return name, true
}
