package datastores

import (
	"context"
	"errors"
	"fmt"
)

type (
	ContactID = int
	Contact   struct {
		ID   ContactID
		Name string
	}
)

// ContactsStore is the registry of contacts.
//
// Identifiers are assigned by the store on [ContactsStore.Create]: they start
// at 1, only ever grow and are never reused, even after a delete.
// Implementations must be safe for concurrent use.
type ContactsStore interface {
	// NextID returns the identifier the next Create will assign, without consuming it.
	NextID(context.Context) (ContactID, error)
	// Create stores a copy of c under a fresh identifier; c.ID is ignored.
	Create(ctx context.Context, c *Contact) (*Contact, error)
	// List returns a snapshot of every contact in insertion order.
	List(context.Context) ([]*Contact, error)
	Get(context.Context, ContactID) (*Contact, error)
	// Update replaces the name of an existing contact. It never creates one.
	Update(ctx context.Context, id ContactID, name string) (*Contact, error)
	Delete(context.Context, ContactID) error
	// Clear removes every contact and resets identifiers to 1.
	Clear(context.Context) error
}

const firstID ContactID = 1

var ErrObjectNotFound = errors.New("store: object not found")

func notFound(id ContactID) error {
	return fmt.Errorf("%w: id %d", ErrObjectNotFound, id)
}
