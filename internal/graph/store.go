package graph

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/waygrid/wayfinder/pkg/logger"
	"go.uber.org/zap"
)

// ErrNotInStore is returned when the requested graph has no file on disk.
var ErrNotInStore = errors.New("graph not in store")

const storeExtension = ".graph"

// Store persists graphs on the local filesystem. Writes go to a temp file in
// the same directory and are renamed into place so readers never observe a
// partial graph. An optional mirror receives a copy of every save.
type Store struct {
	dir    string
	mirror Mirror
}

// Mirror receives copies of saved graphs, e.g. an S3 bucket shared between
// instances so each region is fetched from Overpass only once per fleet.
type Mirror interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
}

// NewStore creates the cache directory if needed and returns a store over it.
func NewStore(dir string, mirror Mirror) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create graph cache dir: %w", err)
	}
	return &Store{dir: dir, mirror: mirror}, nil
}

func (s *Store) pathFor(key string) string {
	return filepath.Join(s.dir, SanitizeKey(key)+storeExtension)
}

// Has reports whether a graph file exists for the key.
func (s *Store) Has(key string) bool {
	_, err := os.Stat(s.pathFor(key))
	return err == nil
}

// Save writes the graph to disk atomically and mirrors it when configured.
func (s *Store) Save(g *Graph) error {
	tmp, err := os.CreateTemp(s.dir, "graph-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp graph file: %w", err)
	}
	tmpName := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(g); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode graph %s: %w", g.Key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush graph %s: %w", g.Key, err)
	}

	target := s.pathFor(g.Key)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist graph %s: %w", g.Key, err)
	}

	if s.mirror != nil {
		data, err := os.ReadFile(target)
		if err == nil {
			if err := s.mirror.Put(SanitizeKey(g.Key)+storeExtension, data); err != nil {
				logger.Warn("graph mirror upload failed",
					zap.String("key", g.Key),
					zap.Error(err),
				)
			}
		}
	}

	return nil
}

// Load reads a graph from disk. A corrupt file is deleted and reported as
// missing so the caller refetches instead of failing forever on bad bytes.
// When the file is absent locally the mirror is consulted before giving up.
func (s *Store) Load(key string) (*Graph, error) {
	path := s.pathFor(key)

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if g, ok := s.loadFromMirror(key); ok {
			return g, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotInStore, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open graph %s: %w", key, err)
	}
	defer file.Close()

	g := &Graph{}
	if err := gob.NewDecoder(file).Decode(g); err != nil {
		os.Remove(path)
		logger.Warn("removed corrupt graph file",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s", ErrNotInStore, key)
	}

	return g, nil
}

func (s *Store) loadFromMirror(key string) (*Graph, bool) {
	if s.mirror == nil {
		return nil, false
	}

	data, err := s.mirror.Get(SanitizeKey(key) + storeExtension)
	if err != nil || len(data) == 0 {
		return nil, false
	}

	path := s.pathFor(key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("failed to persist mirrored graph",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer file.Close()

	g := &Graph{}
	if err := gob.NewDecoder(file).Decode(g); err != nil {
		os.Remove(path)
		return nil, false
	}
	return g, true
}

// StoredGraph describes one on-disk graph file.
type StoredGraph struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	SavedAt   time.Time `json:"saved_at"`
}

// List returns metadata for every graph file in the store.
func (s *Store) List() ([]StoredGraph, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph cache dir: %w", err)
	}

	var out []StoredGraph
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), storeExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, StoredGraph{
			Key:       strings.TrimSuffix(entry.Name(), storeExtension),
			SizeBytes: info.Size(),
			SavedAt:   info.ModTime(),
		})
	}
	return out, nil
}

// RemoveOlderThan deletes graph files whose mtime predates the cutoff and
// returns how many were removed.
func (s *Store) RemoveOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read graph cache dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), storeExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		logger.Info("pruned stale graph files",
			zap.Int("removed", removed),
			zap.Duration("max_age", maxAge),
		)
	}
	return removed, nil
}
