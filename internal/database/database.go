package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username already exists")
)

// Service represents the user store.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close releases the store.
	Close()

	// Load reads the whole document. A missing file is an empty store.
	Load() (*State, error)

	// Save replaces the whole document.
	Save(state *State) error

	GetUser(username string) (*UserRecord, error)

	// CreateUser assigns a user ID and creation time when they are unset.
	CreateUser(rec *UserRecord) error

	// UpdateUser runs fn against the stored record and persists the result
	// if fn returns nil.
	UpdateUser(username string, fn func(*UserRecord) error) error
}

// service is a flat JSON file. Writes from this process are serialised by
// mu; another process writing the same file can still lose updates.
type service struct {
	path  string
	mu    sync.Mutex
	reads singleflight.Group

	// generation counts completed writes. Shared reads are keyed by it, so
	// a read only joins one that started after the latest write landed.
	generation atomic.Uint64

	readFile func(name string) ([]byte, error)
}

// NewService returns a store backed by the JSON file at path. The file is
// created on first write.
func NewService(path string) Service {
	log.Info().Str("path", path).Msg("User store opened")
	return &service{path: path, readFile: os.ReadFile}
}

/* =================================================================================
								READ / WRITE
=================================================================================*/

func (s *service) Load() (*State, error) {
	// Concurrent readers share one file read; each decodes its own copy so
	// callers never alias each other's State.
	key := s.path + "@" + strconv.FormatUint(s.generation.Load(), 10)
	v, err, _ := s.reads.Do(key, func() (any, error) {
		data, err := s.readFile(s.path)
		if errors.Is(err, fs.ErrNotExist) {
			return []byte(nil), nil
		}
		return data, err
	})
	if err != nil {
		return nil, fmt.Errorf("read user store: %w", err)
	}
	return decodeState(v.([]byte))
}

// loadLocked bypasses the shared read so a writer holding mu never sees a
// read that started before the previous write landed.
func (s *service) loadLocked() (*State, error) {
	data, err := s.readFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read user store: %w", err)
	}
	return decodeState(data)
}

func (s *service) Save(state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(state)
}

func decodeState(data []byte) (*State, error) {
	state := &State{}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, state); err != nil {
			return nil, fmt.Errorf("decode user store: %w", err)
		}
	}
	if state.Users == nil {
		state.Users = make(map[string]*UserRecord)
	}
	return state, nil
}

// write replaces the file atomically: a crash mid-write leaves the old
// document in place.
func (s *service) write(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace user store: %w", err)
	}
	s.generation.Add(1)
	return nil
}

/* =================================================================================
								USERS
=================================================================================*/

func (s *service) GetUser(username string) (*UserRecord, error) {
	state, err := s.Load()
	if err != nil {
		return nil, err
	}
	rec, ok := state.Users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return rec, nil
}

func (s *service) CreateUser(rec *UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}
	if _, exists := state.Users[rec.Username]; exists {
		return ErrUserExists
	}

	if rec.UserID == "" {
		rec.UserID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	state.Users[rec.Username] = rec

	if err := s.write(state); err != nil {
		return err
	}
	log.Info().Str("user_id", rec.UserID).Str("username", rec.Username).Msg("User created")
	return nil
}

func (s *service) UpdateUser(username string, fn func(*UserRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}
	rec, ok := state.Users[username]
	if !ok {
		return ErrUserNotFound
	}
	if err := fn(rec); err != nil {
		return err
	}
	// The username is the key; fn may not move the record.
	rec.Username = username
	return s.write(state)
}

/* =================================================================================
								LIFECYCLE
=================================================================================*/

// Health checks that the store file can be read and decoded.
func (s *service) Health() map[string]string {
	stats := map[string]string{"path": s.path}

	state, err := s.Load()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		log.Error().Err(err).Msg("User store down")
		return stats
	}

	stats["status"] = "up"
	stats["users"] = strconv.Itoa(len(state.Users))
	if info, err := os.Stat(s.path); err == nil {
		stats["size_bytes"] = strconv.FormatInt(info.Size(), 10)
		stats["modified"] = info.ModTime().UTC().Format(time.RFC3339)
	} else {
		stats["message"] = "The store file has not been written yet."
	}
	return stats
}

func (s *service) Close() {
	log.Info().Str("path", s.path).Msg("User store closed")
}
