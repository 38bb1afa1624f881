package avatars

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const MaxSize = 2 << 20

var (
	ErrInvalidImage    = errors.New("invalid image data")
	ErrTooLarge        = errors.New("image is too large")
	ErrFileNotExists   = errors.New("file does not exist")
	ErrInvalidFileName = errors.New("invalid file name")
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type IAvatars interface {
	Save(image []byte) (string, error)
	Delete(filename string) error
}

type Avatars struct {
	folderPath string
	mu         sync.RWMutex
}

func New(folderPath string) (*Avatars, error) {
	if folderPath == "" {
		return nil, errors.New("folder path is empty")
	}

	folderPath = filepath.Clean(folderPath)

	if err := os.MkdirAll(folderPath, 0o755); err != nil {
		return nil, fmt.Errorf("avatars.New: %w", err)
	}

	return &Avatars{folderPath: folderPath}, nil
}

// Dir exposes the folder for static serving. Directories are reported as
// missing so the folder cannot be listed.
func (a *Avatars) Dir() http.FileSystem {
	return filesOnly{http.Dir(a.folderPath)}
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}

	return file, nil
}

// Save writes the image under a fresh random name and returns that name.
// The file is written to a temp path and renamed so readers never see a partial file.
func (a *Avatars) Save(image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrInvalidImage
	}
	if len(image) > MaxSize {
		return "", ErrTooLarge
	}

	ext, ok := extensions[http.DetectContentType(image)]
	if !ok {
		return "", ErrInvalidImage
	}

	filename := uuid.NewString() + ext
	fullPath := filepath.Join(a.folderPath, filename)
	tempPath := fullPath + ".tmp"

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.WriteFile(tempPath, image, 0o644); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to write image data: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	return filename, nil
}

func (a *Avatars) Delete(filename string) error {
	if filename == "" || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) || filename != filepath.Base(filename) {
		return ErrInvalidFileName
	}

	fullPath := filepath.Join(a.folderPath, filename)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return ErrFileNotExists
	}

	return os.Remove(fullPath)
}
