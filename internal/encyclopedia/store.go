// Package encyclopedia holds the categorized link collections that every
// dashboard view is derived from, and the observable store that owns them.
package encyclopedia

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageKey is the slot key the whole category graph is persisted under.
const StorageKey = "encyclopediaEntries"

var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category id already exists")
)

// Slot is a durable key-value slot holding string blobs.
type Slot interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// EventType names a store mutation.
type EventType string

const (
	EventLoaded          EventType = "loaded"
	EventCategoryAdded   EventType = "category_added"
	EventCategoryUpdated EventType = "category_updated"
	EventLinkAdded       EventType = "link_added"
	EventLinkUpdated     EventType = "link_updated"
)

// Event is delivered to subscribers after every mutation.
type Event struct {
	Type       EventType
	CategoryID string
	LinkID     string
}

// Store is the single source of truth for categories and links. Every
// mutation is written through to the slot as one JSON blob.
type Store struct {
	mu         sync.RWMutex
	categories []Category
	slot       Slot
	logger     *zap.Logger
	now        func() time.Time

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// NewStore creates an empty store backed by slot. Call Load before use.
func NewStore(slot Slot, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		slot:   slot,
		logger: logger,
		now:    time.Now,
		subs:   make(map[int]func(Event)),
	}
}

// Load reads the graph from the slot, falling back to seed data when the
// slot is empty, unreadable, or holds something that does not parse.
// It reports whether the seed was used.
func (s *Store) Load() bool {
	categories, ok := s.read()
	seeded := !ok
	if seeded {
		categories = Seed(s.now())
	}

	s.mu.Lock()
	s.categories = categories
	if seeded {
		s.persistLocked()
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventLoaded})
	return seeded
}

func (s *Store) read() ([]Category, bool) {
	if s.slot == nil {
		return nil, false
	}
	blob, found, err := s.slot.Get(StorageKey)
	if err != nil {
		s.logger.Warn("reading encyclopedia from slot", zap.Error(err))
		return nil, false
	}
	if !found || blob == "" {
		return nil, false
	}
	var categories []Category
	if err := json.Unmarshal([]byte(blob), &categories); err != nil {
		s.logger.Warn("stored encyclopedia is unparsable, using seed data", zap.Error(err))
		return nil, false
	}
	for i := range categories {
		if categories[i].Links == nil {
			categories[i].Links = []Link{}
		}
	}
	return categories, true
}

// persistLocked serializes the whole graph to the slot. Failures are logged;
// the in-memory state stays authoritative.
func (s *Store) persistLocked() {
	if s.slot == nil {
		return
	}
	data, err := json.Marshal(s.categories)
	if err != nil {
		s.logger.Error("serializing encyclopedia", zap.Error(err))
		return
	}
	if err := s.slot.Set(StorageKey, string(data)); err != nil {
		s.logger.Error("persisting encyclopedia", zap.Error(err))
	}
}

// Subscribe registers fn to be called after every mutation. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Event)) func() {
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

func (s *Store) publish(e Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

// Categories returns a deep copy of every category in store order.
func (s *Store) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.categories)
}

// Category returns a copy of the category with the given id.
func (s *Store) Category(id string) (Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.categories[i].Clone(), true
	}
	return Category{}, false
}

// FindLink resolves a back-reference to copies of the link and its category.
func (s *Store) FindLink(ref Ref) (Link, Category, bool) {
	if ref.IsZero() {
		return Link{}, Category{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ci := s.indexOf(ref.CategoryID)
	if ci < 0 {
		return Link{}, Category{}, false
	}
	for _, l := range s.categories[ci].Links {
		if l.ID == ref.LinkID {
			return l.Clone(), s.categories[ci].Clone(), true
		}
	}
	return Link{}, Category{}, false
}

// HasURL reports whether any link in the store points at rawURL.
func (s *Store) HasURL(rawURL string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		for _, l := range c.Links {
			if l.URL == rawURL {
				return true
			}
		}
	}
	return false
}

func (s *Store) indexOf(id string) int {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return i
		}
	}
	return -1
}

// AddCategory validates and appends a new category.
func (s *Store) AddCategory(in NewCategory) (Category, error) {
	if err := Validate(in); err != nil {
		return Category{}, err
	}
	id := in.ID
	if id == "" {
		id = "enc-" + uuid.NewString()
	}
	c := Category{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Verified:    in.Verified,
		Disputed:    in.Disputed,
		Links:       []Link{},
	}

	s.mu.Lock()
	if s.indexOf(id) >= 0 {
		s.mu.Unlock()
		return Category{}, fmt.Errorf("%w: %s", ErrDuplicateCategory, id)
	}
	s.categories = append(s.categories, c)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(Event{Type: EventCategoryAdded, CategoryID: id})
	return c.Clone(), nil
}

// UpdateCategory applies a patch to a category's metadata.
func (s *Store) UpdateCategory(id string, p CategoryPatch) (Category, error) {
	if p.Title != nil && *p.Title == "" {
		return Category{}, &ValidationError{Fields: []string{"title is required"}}
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return Category{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	c := &s.categories[i]
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Verified != nil {
		c.Verified = *p.Verified
	}
	if p.Disputed != nil {
		c.Disputed = *p.Disputed
	}
	out := c.Clone()
	s.persistLocked()
	s.mu.Unlock()

	s.publish(Event{Type: EventCategoryUpdated, CategoryID: id})
	return out, nil
}

// AddLink validates a new link, assigns it a store-wide unique id and
// appends it to the category.
func (s *Store) AddLink(categoryID string, in NewLink) (Link, error) {
	if err := Validate(in); err != nil {
		return Link{}, err
	}
	l := Link{
		ID:            "link-" + uuid.NewString(),
		Title:         in.Title,
		URL:           in.URL,
		Excerpt:       in.Excerpt,
		PlatformLabel: in.PlatformLabel,
		KindOverride:  in.KindOverride,
		Legal:         in.Legal.Clone(),
	}
	if in.Timestamp != nil {
		ts := *in.Timestamp
		l.Timestamp = &ts
	}

	s.mu.Lock()
	i := s.indexOf(categoryID)
	if i < 0 {
		s.mu.Unlock()
		return Link{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
	}
	s.categories[i].Links = append(s.categories[i].Links, l)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(Event{Type: EventLinkAdded, CategoryID: categoryID, LinkID: l.ID})
	return l.Clone(), nil
}

// UpdateLink merges a patch into the link identified by ref. A reference
// that does not resolve is a no-op and reports false.
func (s *Store) UpdateLink(ref Ref, p LinkPatch) (Link, bool, error) {
	if ref.IsZero() {
		return Link{}, false, nil
	}
	if p.KindOverride != nil && *p.KindOverride != "" && !ValidKind(*p.KindOverride) {
		return Link{}, false, &ValidationError{Fields: []string{"kindoverride must be one of: news social search legal other"}}
	}

	s.mu.Lock()
	ci := s.indexOf(ref.CategoryID)
	if ci < 0 {
		s.mu.Unlock()
		return Link{}, false, nil
	}
	links := s.categories[ci].Links
	li := -1
	for i := range links {
		if links[i].ID == ref.LinkID {
			li = i
			break
		}
	}
	if li < 0 {
		s.mu.Unlock()
		return Link{}, false, nil
	}
	// Stored URLs predate validation; only a changed URL is checked.
	if p.URL != nil && *p.URL != links[li].URL {
		if err := validateURL(*p.URL); err != nil {
			s.mu.Unlock()
			return Link{}, false, err
		}
	}
	links[li].Apply(p)
	out := links[li].Clone()
	s.persistLocked()
	s.mu.Unlock()

	s.publish(Event{Type: EventLinkUpdated, CategoryID: ref.CategoryID, LinkID: ref.LinkID})
	return out, true, nil
}

// Apply merges the non-nil fields of p into the link.
func (l *Link) Apply(p LinkPatch) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.URL != nil {
		l.URL = *p.URL
	}
	if p.Excerpt != nil {
		l.Excerpt = *p.Excerpt
	}
	if p.PlatformLabel != nil {
		l.PlatformLabel = *p.PlatformLabel
	}
	if p.Timestamp != nil {
		ts := *p.Timestamp
		l.Timestamp = &ts
	}
	if p.Sentiment != nil {
		l.Sentiment = *p.Sentiment
	}
	if p.RiskColor != nil {
		l.RiskColor = *p.RiskColor
	}
	if p.AnalysisText != nil {
		l.AnalysisText = *p.AnalysisText
	}
	if p.ArchivedEvidence != nil {
		ev := *p.ArchivedEvidence
		l.ArchivedEvidence = &ev
	}
	if p.KindOverride != nil {
		l.KindOverride = *p.KindOverride
	}
	if p.Legal != nil {
		l.Legal = p.Legal.Clone()
	}
}
