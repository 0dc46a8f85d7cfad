// Package backup writes timestamped JSON archives of service state to a
// pluggable storage backend.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

const (
	namePrefix = "backup-"
	nameFormat = "20060102-150405"
)

// Archive is one stored backup: a version stamp plus named sections, each
// holding the JSON encoding of one slice of service state.
type Archive struct {
	Version   string                     `json:"version"`
	CreatedAt time.Time                  `json:"created_at"`
	Sections  map[string]json.RawMessage `json:"sections"`
}

// Storage abstracts where archives live.
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

type Service struct {
	storage Storage
	version string
}

func NewService(storage Storage, version string) *Service {
	return &Service{storage: storage, version: version}
}

// Write marshals the sections into a single timestamped archive and returns
// the archive name.
func (s *Service) Write(ctx context.Context, sections map[string]any) (string, error) {
	archive := Archive{
		Version:   s.version,
		CreatedAt: time.Now().UTC(),
		Sections:  make(map[string]json.RawMessage, len(sections)),
	}
	for name, payload := range sections {
		raw, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("marshal section %s: %w", name, err)
		}
		archive.Sections[name] = raw
	}

	data, err := json.Marshal(archive)
	if err != nil {
		return "", fmt.Errorf("marshal archive: %w", err)
	}

	name := fmt.Sprintf("%s%s.json", namePrefix, archive.CreatedAt.Format(nameFormat))
	if err := s.storage.Save(ctx, name, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("save archive %s: %w", name, err)
	}
	return name, nil
}

// Read loads and decodes a stored archive by name.
func (s *Service) Read(ctx context.Context, name string) (*Archive, error) {
	reader, err := s.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load archive %s: %w", name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", name, err)
	}

	var archive Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("decode archive %s: %w", name, err)
	}
	if archive.Version == "" {
		return nil, fmt.Errorf("archive %s has no version stamp", name)
	}
	return &archive, nil
}

// List returns archive names sorted oldest first. The timestamp in the name
// makes lexical order chronological.
func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.storage.List(ctx, namePrefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Latest returns the name of the newest archive, or "" when none exist.
func (s *Service) Latest(ctx context.Context) (string, error) {
	names, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[len(names)-1], nil
}

// Prune deletes the oldest archives until at most keep remain.
func (s *Service) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	names, err := s.List(ctx)
	if err != nil {
		return err
	}
	for len(names) > keep {
		if err := s.storage.Delete(ctx, names[0]); err != nil {
			return fmt.Errorf("prune archive %s: %w", names[0], err)
		}
		names = names[1:]
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, name string) error {
	return s.storage.Delete(ctx, name)
}
