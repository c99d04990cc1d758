package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	ds "github.com/oaiiae/huma-addressbook/datastores"
)

// Admin exposes maintenance operations. It must not be mounted on a public API.
type Admin struct {
	Store        ds.ContactsStore
	ErrorHandler func(context.Context, error)
}

func (h *Admin) RegisterClear(api huma.API) { // called by [huma.AutoRegister]
	huma.Delete(api, "/admin/contacts",
		handlerWithErrorHandler(h.clear, h.ErrorHandler),
		opSummary("Remove every contact and reset identifiers"),
		opErrors(http.StatusInternalServerError),
	)
}

func (h *Admin) clear(ctx context.Context, _ *struct{}) (*struct{}, error) {
	return nil, h.Store.Clear(ctx)
}
