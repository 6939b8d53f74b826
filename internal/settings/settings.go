// Package settings holds the profile and notification preferences, persisted
// in the same slot as the encyclopedia.
package settings

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

// StorageKey is the slot key settings are persisted under.
const StorageKey = "settings"

// Settings is the user's profile and notification preferences.
type Settings struct {
	FullName              string `json:"fullName" validate:"max=200"`
	Email                 string `json:"email" validate:"omitempty,email"`
	Address               string `json:"address,omitempty"`
	PhoneNumber           string `json:"phoneNumber,omitempty"`
	EmailNotifications    bool   `json:"emailNotifications"`
	PushNotifications     bool   `json:"pushNotifications"`
	WhatsAppNumber        string `json:"whatsAppNumber,omitempty" validate:"omitempty,e164"`
	WhatsAppNotifications bool   `json:"whatsAppNotifications"`
}

// Defaults returns the settings used before anything has been saved.
func Defaults(fullName, email, address, phone string) Settings {
	return Settings{
		FullName:           fullName,
		Email:              email,
		Address:            address,
		PhoneNumber:        phone,
		EmailNotifications: true,
	}
}

// Store keeps the current settings and notifies subscribers on change.
type Store struct {
	mu       sync.RWMutex
	current  Settings
	slot     encyclopedia.Slot
	logger   *zap.Logger
	defaults Settings

	subMu  sync.Mutex
	subs   map[int]func(Settings)
	nextID int
}

// NewStore creates a settings store. Call Load before use.
func NewStore(slot encyclopedia.Slot, defaults Settings, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		slot:     slot,
		current:  defaults,
		defaults: defaults,
		logger:   logger,
		subs:     make(map[int]func(Settings)),
	}
}

// Load reads the persisted settings, keeping the defaults when the slot is
// empty or unreadable. It reports whether stored settings were found.
func (s *Store) Load() bool {
	raw, ok, err := s.slot.Get(StorageKey)
	if err != nil {
		s.logger.Warn("reading settings", zap.Error(err))
		return false
	}
	if !ok || raw == "" {
		return false
	}
	loaded := s.defaults
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		s.logger.Warn("stored settings unparsable, using defaults", zap.Error(err))
		return false
	}
	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return true
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save validates and stores next, then notifies subscribers.
func (s *Store) Save(next Settings) error {
	if err := encyclopedia.Validate(next); err != nil {
		return err
	}
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	if err := s.slot.Set(StorageKey, string(data)); err != nil {
		s.logger.Error("persisting settings", zap.Error(err))
	}
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(next)
	}
	return nil
}

// Subscribe registers fn to receive the settings after every save. The
// returned function unsubscribes.
func (s *Store) Subscribe(fn func(Settings)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}
