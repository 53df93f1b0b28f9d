// Package prefs keeps per-user editor preferences (theme, language, grid
// settings) with change notification for connected editor surfaces.
package prefs

import (
	"context"
	"fmt"
	"sync"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/store"
)

// Known preference keys. Arbitrary keys are allowed; these are the ones the
// editor ships with.
const (
	KeyTheme    = "theme"
	KeyLanguage = "language"
	KeyGridSize = "gridSize"
	KeySnapMode = "snapMode"
)

// Defaults returned when a user has no stored value.
var defaults = map[string]string{
	KeyTheme:    "dark",
	KeyLanguage: "en",
	KeyGridSize: "16",
	KeySnapMode: "edge",
}

// Persister is the storage surface the preference store writes through.
// *store.Queries satisfies it.
type Persister interface {
	SetPreference(ctx context.Context, arg store.SetPreferenceParams) error
	ListPreferences(ctx context.Context, userID string) (map[string]string, error)
}

// Listener receives a changed key and its new value.
type Listener func(key, value string)

// Store is an observable per-user preference store. Values are cached in
// memory and written through to storage on every change.
type Store struct {
	persister Persister

	mu        sync.RWMutex
	values    map[string]map[string]string // userID -> key -> value
	listeners map[string]map[int]Listener  // userID -> token -> listener
	nextToken int
	disposed  bool
}

func NewStore(persister Persister) *Store {
	return &Store{
		persister: persister,
		values:    make(map[string]map[string]string),
		listeners: make(map[string]map[int]Listener),
	}
}

// Load primes the cache for a user from storage.
func (s *Store) Load(ctx context.Context, userID string) error {
	stored, err := s.persister.ListPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil
	}
	s.values[userID] = stored
	return nil
}

// Get returns the user's value for key, falling back to the shipped default.
func (s *Store) Get(userID, key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, ok := s.values[userID]; ok {
		if v, ok := user[key]; ok {
			return v
		}
	}
	return defaults[key]
}

// All returns the user's effective preferences: defaults overlaid with
// stored values.
func (s *Store) All(userID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range s.values[userID] {
		out[k] = v
	}
	return out
}

// Set writes a preference through to storage and notifies the user's
// listeners. Listeners are invoked only when the value actually changes.
func (s *Store) Set(ctx context.Context, userID, key, value string) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return fmt.Errorf("preference store disposed")
	}
	user, ok := s.values[userID]
	if !ok {
		user = make(map[string]string)
		s.values[userID] = user
	}
	if user[key] == value {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	err := s.persister.SetPreference(ctx, store.SetPreferenceParams{
		UserID: userID,
		Key:    key,
		Value:  value,
	})
	if err != nil {
		return fmt.Errorf("persist preference: %w", err)
	}

	s.mu.Lock()
	s.values[userID][key] = value
	notify := make([]Listener, 0, len(s.listeners[userID]))
	for _, l := range s.listeners[userID] {
		notify = append(notify, l)
	}
	s.mu.Unlock()

	for _, l := range notify {
		l(key, value)
	}
	return nil
}

// Subscribe registers a listener for one user's preference changes and
// returns an unsubscribe func. Unsubscribing twice is safe.
func (s *Store) Subscribe(userID string, l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return func() {}
	}

	if s.listeners[userID] == nil {
		s.listeners[userID] = make(map[int]Listener)
	}
	token := s.nextToken
	s.nextToken++
	s.listeners[userID][token] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[userID], token)
		if len(s.listeners[userID]) == 0 {
			delete(s.listeners, userID)
		}
	}
}

// Dispose drops all listeners and cached values. The store refuses writes
// afterwards; reads return defaults.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.values = make(map[string]map[string]string)
	s.listeners = make(map[string]map[int]Listener)
}
