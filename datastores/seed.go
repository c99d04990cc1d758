package datastores

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout of a seed file:
//
//	contacts:
//	  - name: john
//	  - name: jane
type seedFile struct {
	Contacts []struct {
		Name string `yaml:"name"`
	} `yaml:"contacts"`
}

// LoadSeed parses contacts from a YAML seed file. Identifiers are not read:
// they are assigned when the contacts are created.
func LoadSeed(r io.Reader) ([]*Contact, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	contacts := make([]*Contact, 0, len(file.Contacts))
	for _, c := range file.Contacts {
		contacts = append(contacts, &Contact{Name: c.Name})
	}
	return contacts, nil
}

// Seed creates contacts in order and returns the stored contacts.
func Seed(ctx context.Context, store ContactsStore, contacts []*Contact, logger *slog.Logger) ([]*Contact, error) {
	next, err := store.NextID(ctx)
	if err != nil {
		return nil, err
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "seeding contacts",
		slog.Int("count", len(contacts)),
		slog.Int("first_id", next),
	)

	seeded := make([]*Contact, 0, len(contacts))
	for _, c := range contacts {
		created, err := store.Create(ctx, c)
		if err != nil {
			return seeded, fmt.Errorf("seed contact %q: %w", c.Name, err)
		}
		seeded = append(seeded, created)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "seeded contacts", slog.Int("count", len(seeded)))
	return seeded, nil
}
