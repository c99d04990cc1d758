package datastores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ContactsSQLite implements [ContactsStore] on a SQLite database.
//
// The pool is limited to one connection: statements serialize, and an
// in-memory database (":memory:") stays the same database for the lifetime
// of the store.
type ContactsSQLite struct {
	db *sql.DB
}

var _ ContactsStore = (*ContactsSQLite)(nil)

// AUTOINCREMENT keeps identifiers from being reused after deletes.
const contactsSchema = `CREATE TABLE IF NOT EXISTS contacts (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);`

func OpenContactsSQLite(ctx context.Context, dsn string) (*ContactsSQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, contactsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &ContactsSQLite{db: db}, nil
}

func (s *ContactsSQLite) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *ContactsSQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *ContactsSQLite) NextID(ctx context.Context) (ContactID, error) {
	var seq ContactID
	err := s.db.QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = 'contacts'`).Scan(&seq)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return firstID, nil
	case err != nil:
		return 0, err
	default:
		return seq + 1, nil
	}
}

func (s *ContactsSQLite) Create(ctx context.Context, c *Contact) (*Contact, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO contacts (name) VALUES (?)`, c.Name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Contact{ID: ContactID(id), Name: c.Name}, nil
}

func (s *ContactsSQLite) List(ctx context.Context) ([]*Contact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM contacts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []*Contact{}
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		contacts = append(contacts, &c)
	}
	return contacts, rows.Err()
}

func (s *ContactsSQLite) Get(ctx context.Context, id ContactID) (*Contact, error) {
	return get(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryRower, id ContactID) (*Contact, error) {
	var c Contact
	err := q.QueryRowContext(ctx, `SELECT id, name FROM contacts WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ContactsSQLite) Update(ctx context.Context, id ContactID, name string) (*Contact, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint: errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `UPDATE contacts SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, notFound(id)
	}

	c, err := get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return c, tx.Commit()
}

func (s *ContactsSQLite) Delete(ctx context.Context, id ContactID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *ContactsSQLite) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint: errcheck // no-op after commit

	for _, stmt := range []string{
		`DELETE FROM contacts`,
		`DELETE FROM sqlite_sequence WHERE name = 'contacts'`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
