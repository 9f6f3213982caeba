package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mudler/LocalDiffusion/pkg/utils"
	"github.com/mudler/xlog"
)

var (
	ErrNotFound    = errors.New("image not found")
	ErrInvalidName = errors.New("invalid image name")
)

// Extensions lists the file types the store treats as images.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp"}

type Artifact struct {
	ID       string
	Filename string
	Path     string
	URL      string
	Created  time.Time
	Size     int64
}

// Mirror receives a copy of every artifact written to or removed from the
// store. Mirror errors never fail a store operation.
type Mirror interface {
	Put(ctx context.Context, filename string, data []byte) error
	Remove(ctx context.Context, filename string) error
}

type Store struct {
	dir       string
	urlPrefix string
	mirror    Mirror
}

type StoreOption func(*Store)

func WithMirror(m Mirror) StoreOption {
	return func(s *Store) {
		s.mirror = m
	}
}

// NewStore opens (and creates, if needed) the directory backing the store.
// Artifact URLs are built by joining urlPrefix and the file name.
func NewStore(dir, urlPrefix string, opts ...StoreOption) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create outputs directory %q: %w", dir, err)
	}
	s := &Store{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) URL(filename string) string {
	return path.Join(s.urlPrefix, filename)
}

// Save writes data under a fresh random identifier. Identifiers are version 4
// UUIDs and are not checked for collisions.
func (s *Store) Save(ctx context.Context, data []byte) (*Artifact, error) {
	id := uuid.New().String()
	filename := id + ".png"
	target := filepath.Join(s.dir, filename)

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, filename, data); err != nil {
			xlog.Warn("failed to mirror image", "filename", filename, "error", err)
		}
	}

	return s.artifact(info), nil
}

// List returns every stored image, newest first.
func (s *Store) List() ([]*Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read outputs directory: %w", err)
	}

	artifacts := []*Artifact{}
	for _, e := range entries {
		if e.IsDir() || !isImageName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		artifacts = append(artifacts, s.artifact(info))
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].Created.Equal(artifacts[j].Created) {
			return artifacts[i].Filename > artifacts[j].Filename
		}
		return artifacts[i].Created.After(artifacts[j].Created)
	})

	return artifacts, nil
}

// Get returns the artifact stored under filename.
func (s *Store) Get(filename string) (*Artifact, error) {
	target, err := s.path(filename)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}
	return s.artifact(info), nil
}

func (s *Store) Delete(ctx context.Context, filename string) error {
	target, err := s.path(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.Remove(ctx, filename); err != nil {
			xlog.Warn("failed to remove mirrored image", "filename", filename, "error", err)
		}
	}
	return nil
}

func (s *Store) artifact(info fs.FileInfo) *Artifact {
	name := info.Name()
	return &Artifact{
		ID:       strings.TrimSuffix(name, filepath.Ext(name)),
		Filename: name,
		Path:     filepath.Join(s.dir, name),
		URL:      s.URL(name),
		Created:  info.ModTime(),
		Size:     info.Size(),
	}
}

func (s *Store) path(filename string) (string, error) {
	if !isImageName(filename) {
		return "", ErrInvalidName
	}
	p, err := utils.JoinInRoot(s.dir, filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return p, nil
}

// isImageName accepts plain, non hidden file names with a known image
// extension. Anything that could escape the store directory is rejected.
func isImageName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.ContainsRune(name, 0) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
