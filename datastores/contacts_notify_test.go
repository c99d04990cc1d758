package datastores_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ds "github.com/oaiiae/huma-addressbook/datastores"
)

func TestContactsNotifier(t *testing.T) {
	ctx := context.Background()

	var changes []ds.Change
	s := &ds.ContactsNotifier{
		ContactsStore: ds.NewContactsInmem(),
		Notify:        func(_ context.Context, c ds.Change) { changes = append(changes, c) },
	}

	_, err := s.Create(ctx, &ds.Contact{Name: "a"})
	require.NoError(t, err)
	_, err = s.Update(ctx, 1, "b")
	require.NoError(t, err)
	_, err = s.Get(ctx, 1)
	require.NoError(t, err)
	_, err = s.List(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, 1))
	require.NoError(t, s.Clear(ctx))

	// failures are not notified
	_, err = s.Update(ctx, 1, "c")
	require.ErrorIs(t, err, ds.ErrObjectNotFound)
	require.ErrorIs(t, s.Delete(ctx, 1), ds.ErrObjectNotFound)

	assert.Equal(t, []ds.Change{
		{Op: ds.ChangeCreated, Contact: &ds.Contact{ID: 1, Name: "a"}},
		{Op: ds.ChangeUpdated, Contact: &ds.Contact{ID: 1, Name: "b"}},
		{Op: ds.ChangeDeleted, Contact: &ds.Contact{ID: 1}},
		{Op: ds.ChangeCleared},
	}, changes)
}

func TestContactsNotifierNilNotify(t *testing.T) {
	s := &ds.ContactsNotifier{ContactsStore: ds.NewContactsInmem()}
	c, err := s.Create(context.Background(), &ds.Contact{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
}
