package source

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.fiblab.net/sim/patrol/planner"
	"github.com/paulmach/orb"
)

var ErrCacheMiss = errors.New("cache miss")

// Entry is one cached road graph.
type Entry struct {
	Place     string             `json:"place" bson:"place"`
	Center    orb.Point          `json:"center" bson:"center"`
	Graph     *planner.RoadGraph `json:"graph" bson:"graph"`
	FetchedAt time.Time          `json:"fetched_at" bson:"fetched_at"`
}

// Store persists road graphs between runs. Load returns ErrCacheMiss for
// an unknown place.
type Store interface {
	Load(ctx context.Context, place string) (*Entry, error)
	Save(ctx context.Context, e *Entry) error
}

// FileStore keeps one JSON file per place in Dir.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(place string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%x.json", sha1.Sum([]byte(place))))
}

func (s *FileStore) Load(_ context.Context, place string) (*Entry, error) {
	b, err := os.ReadFile(s.path(place))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	e := &Entry{}
	if err := json.Unmarshal(b, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path(place), err)
	}
	if e.Place != place {
		return nil, ErrCacheMiss
	}
	return e, nil
}

func (s *FileStore) Save(_ context.Context, e *Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	// write then rename so readers never see a partial file
	tmp := s.path(e.Place) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(e.Place))
}
