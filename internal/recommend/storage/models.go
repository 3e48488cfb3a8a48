// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package storage persists published models so a restarted process serves
// the last good models instead of the cold-start fallback.
//
// Files are named {model}_v{version}.gob.gz and hold a gob-encoded
// envelope: metadata plus the gzip-compressed gob of the model, with a
// SHA-256 checksum of the uncompressed bytes verified on load.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when no stored version exists for a model.
var ErrNotFound = errors.New("model not found")

const fileSuffix = ".gob.gz"

// ModelMetadata describes a stored model file.
type ModelMetadata struct {
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	SavedAt   time.Time `json:"saved_at"`

	Actors int `json:"actors,omitempty"`
	Items  int `json:"items,omitempty"`

	// Checksum is the SHA-256 of the uncompressed model bytes.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed size.
	SizeBytes int64 `json:"size_bytes"`
}

// storedFile is the on-disk envelope.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store manages model files in one directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// versions tracks every stored version per model name.
	versions map[string][]int64
}

// NewStore opens the store at baseDir, creating it if needed, and indexes
// existing files.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string][]int64),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	return s, nil
}

func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseModelFilename(entry.Name())
		if !ok {
			continue
		}
		s.versions[name] = append(s.versions[name], version)
	}
	for name := range s.versions {
		sortVersions(s.versions[name])
	}
	return nil
}

// parseModelFilename splits "collaborative_v12.gob.gz" into its name and
// version.
func parseModelFilename(file string) (string, int64, bool) {
	base, ok := strings.CutSuffix(file, fileSuffix)
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndex(base, "_v")
	if i <= 0 {
		return "", 0, false
	}
	version, err := strconv.ParseInt(base[i+2:], 10, 64)
	if err != nil || version <= 0 {
		return "", 0, false
	}
	return base[:i], version, true
}

// sortVersions sorts descending, newest first.
func sortVersions(v []int64) {
	sort.Slice(v, func(i, j int) bool { return v[i] > v[j] })
}

func (s *Store) modelPath(name string, version int64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, fileSuffix))
}

// Save writes data as version of name. The file is written to a
// temporary name and renamed, so a crash never leaves a truncated model
// under a valid name.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, version int64, data interface{}, meta ModelMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.Name = name
	meta.Version = version
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.modelPath(name, version)
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is built from a model name and version
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write model file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename model file: %w", err)
	}

	for _, v := range s.versions[name] {
		if v == version {
			return nil
		}
	}
	s.versions[name] = append(s.versions[name], version)
	sortVersions(s.versions[name])
	return nil
}

// Load decodes version of name into target. Version 0 loads the latest.
func (s *Store) Load(ctx context.Context, name string, version int64, target interface{}) (*ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		vs := s.versions[name]
		if len(vs) == 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		version = vs[0]
	}

	f, err := os.Open(s.modelPath(name, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s v%d: %w", name, version, ErrNotFound)
		}
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &sf.Metadata, nil
}

// Versions returns the stored versions of name, newest first.
func (s *Store) Versions(name string) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.versions[name]...)
}

// LatestVersion returns the newest stored version of name.
func (s *Store) LatestVersion(name string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs := s.versions[name]
	if len(vs) == 0 {
		return 0, false
	}
	return vs[0], true
}

// Prune deletes all but the newest keep versions of name.
func (s *Store) Prune(ctx context.Context, name string, keep int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vs := s.versions[name]
	if len(vs) <= keep {
		return nil
	}
	var firstErr error
	for _, v := range vs[keep:] {
		if err := os.Remove(s.modelPath(name, v)); err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = fmt.Errorf("delete %s v%d: %w", name, v, err)
		}
	}
	s.versions[name] = vs[:keep]
	return firstErr
}
