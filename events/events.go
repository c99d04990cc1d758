// Package events carries contact changes to subscribers outside of the
// request that caused them: websocket clients and an MQTT broker.
package events

import (
	"context"
	"time"

	ds "github.com/oaiiae/huma-addressbook/datastores"
)

// Event is the JSON form of a [ds.Change].
type Event struct {
	Op   ds.ChangeOp  `json:"op"`
	ID   ds.ContactID `json:"id,omitempty"`
	Name string       `json:"name,omitempty"`
	Href string       `json:"href,omitempty"`
	Time time.Time    `json:"time"`
}

// FromChange builds the event of ch. href resolves a contact identifier to its URI.
func FromChange(ch ds.Change, href func(ds.ContactID) string, now time.Time) Event {
	e := Event{Op: ch.Op, Time: now.UTC()}
	if ch.Contact != nil {
		e.ID = ch.Contact.ID
		e.Name = ch.Contact.Name
		e.Href = href(ch.Contact.ID)
	}
	return e
}

type Publisher interface {
	// Publish delivers e on a best-effort basis. It must not block for long
	// since it runs on the path of the mutating request.
	Publish(ctx context.Context, e Event)
}

// Publishers fans an event out to every publisher in order.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, e Event) {
	for _, p := range ps {
		p.Publish(ctx, e)
	}
}

// Notify returns a [ds.ContactsNotifier] callback publishing to p.
func Notify(p Publisher, href func(ds.ContactID) string) func(context.Context, ds.Change) {
	return func(ctx context.Context, ch ds.Change) {
		p.Publish(ctx, FromChange(ch, href, time.Now()))
	}
}
