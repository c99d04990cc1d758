package datastores

import "context"

type ChangeOp string

const (
	ChangeCreated ChangeOp = "created"
	ChangeUpdated ChangeOp = "updated"
	ChangeDeleted ChangeOp = "deleted"
	ChangeCleared ChangeOp = "cleared"
)

// Change describes a successful mutation. Contact is nil for [ChangeCleared]
// and holds only the ID for [ChangeDeleted].
type Change struct {
	Op      ChangeOp
	Contact *Contact
}

// ContactsNotifier decorates a [ContactsStore] and calls Notify after every
// successful mutation. Failed operations are not notified.
type ContactsNotifier struct {
	ContactsStore
	Notify func(context.Context, Change)
}

var _ ContactsStore = (*ContactsNotifier)(nil)

func (s *ContactsNotifier) Create(ctx context.Context, c *Contact) (*Contact, error) {
	created, err := s.ContactsStore.Create(ctx, c)
	if err == nil {
		s.notify(ctx, ChangeCreated, created)
	}
	return created, err
}

func (s *ContactsNotifier) Update(ctx context.Context, id ContactID, name string) (*Contact, error) {
	updated, err := s.ContactsStore.Update(ctx, id, name)
	if err == nil {
		s.notify(ctx, ChangeUpdated, updated)
	}
	return updated, err
}

func (s *ContactsNotifier) Delete(ctx context.Context, id ContactID) error {
	err := s.ContactsStore.Delete(ctx, id)
	if err == nil {
		s.notify(ctx, ChangeDeleted, &Contact{ID: id})
	}
	return err
}

func (s *ContactsNotifier) Clear(ctx context.Context) error {
	err := s.ContactsStore.Clear(ctx)
	if err == nil {
		s.notify(ctx, ChangeCleared, nil)
	}
	return err
}

func (s *ContactsNotifier) notify(ctx context.Context, op ChangeOp, c *Contact) {
	if s.Notify != nil {
		s.Notify(ctx, Change{Op: op, Contact: c})
	}
}
