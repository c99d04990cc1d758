package datastores

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// ContactsInmem implements [ContactsStore].
type ContactsInmem struct {
	mu       sync.RWMutex
	nextID   ContactID
	contacts []Contact
}

var _ ContactsStore = (*ContactsInmem)(nil)

// NewContactsInmem returns a store holding cs, in order, under identifiers 1..len(cs).
func NewContactsInmem(cs ...*Contact) *ContactsInmem {
	s := &ContactsInmem{nextID: firstID}
	for _, c := range cs {
		s.create(c)
	}
	return s
}

func (s *ContactsInmem) NextID(_ context.Context) (ContactID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return max(s.nextID, firstID), nil
}

func (s *ContactsInmem) Create(_ context.Context, c *Contact) (*Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(c), nil
}

func (s *ContactsInmem) create(c *Contact) *Contact {
	if s.nextID < firstID {
		s.nextID = firstID
	}
	stored := Contact{ID: s.nextID, Name: c.Name}
	s.nextID++
	s.contacts = append(s.contacts, stored)
	return &stored
}

func (s *ContactsInmem) List(_ context.Context) ([]*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contacts := make([]*Contact, len(s.contacts))
	for i := range s.contacts {
		c := s.contacts[i]
		contacts[i] = &c
	}
	return contacts, nil
}

func (s *ContactsInmem) Get(_ context.Context, id ContactID) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index(id)
	if !ok {
		return nil, notFound(id)
	}
	c := s.contacts[i]
	return &c, nil
}

func (s *ContactsInmem) Update(_ context.Context, id ContactID, name string) (*Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index(id)
	if !ok {
		return nil, notFound(id)
	}
	s.contacts[i].Name = name
	c := s.contacts[i]
	return &c, nil
}

func (s *ContactsInmem) Delete(_ context.Context, id ContactID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index(id)
	if !ok {
		return notFound(id)
	}
	s.contacts = slices.Delete(s.contacts, i, i+1)
	return nil
}

func (s *ContactsInmem) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = nil
	s.nextID = firstID
	return nil
}

// index must be called with mu held. Contacts are sorted by ID since
// identifiers are assigned in increasing order and appended.
func (s *ContactsInmem) index(id ContactID) (int, bool) {
	return slices.BinarySearchFunc(s.contacts, id, func(c Contact, id ContactID) int { return cmp.Compare(c.ID, id) })
}
