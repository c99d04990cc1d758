package datastores_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ds "github.com/oaiiae/huma-addressbook/datastores"
)

// testContactsStore runs the registry contract against a fresh empty store.
func testContactsStore(t *testing.T, newStore func(t *testing.T) ds.ContactsStore) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		s := newStore(t)
		contacts, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, contacts)

		next, err := s.NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, next)
	})

	t.Run("create assigns increasing ids", func(t *testing.T) {
		s := newStore(t)
		for want := 1; want <= 3; want++ {
			next, err := s.NextID(ctx)
			require.NoError(t, err)
			require.Equal(t, want, next)

			c, err := s.Create(ctx, &ds.Contact{ID: 42, Name: "Juan"})
			require.NoError(t, err)
			assert.Equal(t, &ds.Contact{ID: want, Name: "Juan"}, c)
		}

		contacts, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*ds.Contact{{ID: 1, Name: "Juan"}, {ID: 2, Name: "Juan"}, {ID: 3, Name: "Juan"}}, contacts)
	})

	t.Run("next id does not consume", func(t *testing.T) {
		s := newStore(t)
		for range 3 {
			next, err := s.NextID(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, next)
		}
	})

	t.Run("get", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, &ds.Contact{Name: "ana"})
		require.NoError(t, err)

		c, err := s.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, &ds.Contact{ID: 1, Name: "ana"}, c)

		_, err = s.Get(ctx, 2)
		require.ErrorIs(t, err, ds.ErrObjectNotFound)
	})

	t.Run("update replaces name only", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"a", "b", "c"} {
			_, err := s.Create(ctx, &ds.Contact{Name: name})
			require.NoError(t, err)
		}

		c, err := s.Update(ctx, 2, "bee")
		require.NoError(t, err)
		assert.Equal(t, &ds.Contact{ID: 2, Name: "bee"}, c)

		// same request again, same state
		c, err = s.Update(ctx, 2, "bee")
		require.NoError(t, err)
		assert.Equal(t, &ds.Contact{ID: 2, Name: "bee"}, c)

		contacts, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*ds.Contact{{ID: 1, Name: "a"}, {ID: 2, Name: "bee"}, {ID: 3, Name: "c"}}, contacts)
	})

	t.Run("update never creates", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Update(ctx, 7, "ghost")
		require.ErrorIs(t, err, ds.ErrObjectNotFound)

		contacts, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, contacts)
		next, err := s.NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, next)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"a", "b", "c"} {
			_, err := s.Create(ctx, &ds.Contact{Name: name})
			require.NoError(t, err)
		}

		require.NoError(t, s.Delete(ctx, 2))
		require.ErrorIs(t, s.Delete(ctx, 2), ds.ErrObjectNotFound)
		require.ErrorIs(t, s.Delete(ctx, 2), ds.ErrObjectNotFound)

		contacts, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*ds.Contact{{ID: 1, Name: "a"}, {ID: 3, Name: "c"}}, contacts)
	})

	t.Run("ids are never reused", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, &ds.Contact{Name: "a"})
		require.NoError(t, err)
		c, err := s.Create(ctx, &ds.Contact{Name: "b"})
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, c.ID))

		next, err := s.NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, next)

		c, err = s.Create(ctx, &ds.Contact{Name: "c"})
		require.NoError(t, err)
		assert.Equal(t, 3, c.ID)
	})

	t.Run("clear resets", func(t *testing.T) {
		s := newStore(t)
		for range 3 {
			_, err := s.Create(ctx, &ds.Contact{Name: "x"})
			require.NoError(t, err)
		}
		require.NoError(t, s.Clear(ctx))

		contacts, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, contacts)

		c, err := s.Create(ctx, &ds.Contact{Name: "y"})
		require.NoError(t, err)
		assert.Equal(t, 1, c.ID)
	})

	t.Run("list is a snapshot", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, &ds.Contact{Name: "a"})
		require.NoError(t, err)

		contacts, err := s.List(ctx)
		require.NoError(t, err)
		contacts[0].Name = "mutated"

		c, err := s.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "a", c.Name)
	})

	t.Run("concurrent creates get distinct ids", func(t *testing.T) {
		s := newStore(t)
		const n = 50

		ids := make(chan ds.ContactID, n)
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := s.Create(ctx, &ds.Contact{Name: "same"})
				assert.NoError(t, err)
				if c != nil {
					ids <- c.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[ds.ContactID]bool{}
		for id := range ids {
			assert.False(t, seen[id], "id %d assigned twice", id)
			seen[id] = true
		}
		assert.Len(t, seen, n)

		next, err := s.NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, n+1, next)
	})
}

func TestContactsInmem(t *testing.T) {
	testContactsStore(t, func(*testing.T) ds.ContactsStore { return ds.NewContactsInmem() })
}

func TestContactsInmemZeroValue(t *testing.T) {
	testContactsStore(t, func(*testing.T) ds.ContactsStore { return new(ds.ContactsInmem) })
}

func TestNewContactsInmemSeeds(t *testing.T) {
	s := ds.NewContactsInmem(&ds.Contact{ID: 9, Name: "john"}, &ds.Contact{Name: "jane"})

	contacts, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []*ds.Contact{{ID: 1, Name: "john"}, {ID: 2, Name: "jane"}}, contacts)

	next, err := s.NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestContactsSQLite(t *testing.T) {
	testContactsStore(t, func(t *testing.T) ds.ContactsStore {
		s, err := ds.OpenContactsSQLite(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		require.NoError(t, s.Ping(context.Background()))
		return s
	})
}
