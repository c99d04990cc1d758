package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	ds "github.com/oaiiae/huma-addressbook/datastores"
)

type Contacts struct {
	Store ds.ContactsStore
	// BaseURI prefixes every href and Location, e.g. "/api" or "https://example.org/api".
	BaseURI      string
	ErrorHandler func(context.Context, error)
}

// Href returns the canonical URI of the contact identified by id.
func Href(baseURI string, id ds.ContactID) string {
	return strings.TrimSuffix(baseURI, "/") + "/contacts/person/" + strconv.Itoa(id)
}

type ContactModel struct {
	ID   ds.ContactID `json:"id"   readOnly:"true" example:"1"`
	Name string       `json:"name"                 example:"Juan"`
	Href string       `json:"href" readOnly:"true" example:"/api/contacts/person/1" format:"uri-reference"`
}

// ContactInput is the request body of POST and PUT. Missing name is accepted as empty.
type ContactInput struct {
	_    struct{} `json:"-" additionalProperties:"true"`
	Name string   `json:"name,omitempty" example:"Juan"`
}

func (h *Contacts) model(c *ds.Contact) ContactModel {
	return ContactModel{ID: c.ID, Name: c.Name, Href: Href(h.BaseURI, c.ID)}
}

func (h *Contacts) RegisterList(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/contacts",
		handlerWithErrorHandler(h.list, h.ErrorHandler),
		opSummary("List contacts"),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsListOutput struct {
	Body []ContactModel
}

func (h *Contacts) list(ctx context.Context, _ *struct{}) (*ContactsListOutput, error) {
	contacts, err := h.Store.List(ctx)
	if err != nil {
		return nil, err
	}

	body := make([]ContactModel, 0, len(contacts))
	for _, contact := range contacts {
		body = append(body, h.model(contact))
	}

	return &ContactsListOutput{Body: body}, nil
}

func (h *Contacts) RegisterCreate(api huma.API) { // called by [huma.AutoRegister]
	huma.Post(api, "/contacts",
		handlerWithErrorHandler(h.create, h.ErrorHandler),
		opSummary("Create contact"),
		opStatus(http.StatusCreated),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsCreateOutput struct {
	Location string `header:"Location" doc:"URI of the created contact"`
	Body     ContactModel
}

func (h *Contacts) create(ctx context.Context, input *struct {
	Body ContactInput
}) (*ContactsCreateOutput, error) {
	contact, err := h.Store.Create(ctx, &ds.Contact{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}

	body := h.model(contact)
	return &ContactsCreateOutput{Location: body.Href, Body: body}, nil
}

func (h *Contacts) RegisterGet(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/contacts/person/{id}",
		handlerWithErrorHandler(h.get, h.ErrorHandler),
		opSummary("Get contact"),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

type ContactsGetOutput struct {
	Body ContactModel
}

func (h *Contacts) get(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" example:"1" doc:"ID of the contact to get"`
}) (*ContactsGetOutput, error) {
	contact, err := h.Store.Get(ctx, input.ID)
	switch {
	case err == nil:
		return &ContactsGetOutput{Body: h.model(contact)}, nil

	case errors.Is(err, ds.ErrObjectNotFound):
		return nil, huma.Error404NotFound("id not found", err)

	default:
		return nil, err
	}
}

func (h *Contacts) RegisterPut(api huma.API) { // called by [huma.AutoRegister]
	huma.Put(api, "/contacts/person/{id}",
		handlerWithErrorHandler(h.put, h.ErrorHandler),
		opSummary("Replace contact"),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

func (h *Contacts) put(ctx context.Context, input *struct {
	ID   ds.ContactID `path:"id" example:"1" doc:"ID of the contact to replace"`
	Body ContactInput
}) (*struct{}, error) {
	_, err := h.Store.Update(ctx, input.ID, input.Body.Name)
	if errors.Is(err, ds.ErrObjectNotFound) {
		return nil, huma.Error404NotFound("id not found", err)
	}
	return nil, err
}

func (h *Contacts) RegisterDelete(api huma.API) { // called by [huma.AutoRegister]
	huma.Delete(api, "/contacts/person/{id}",
		handlerWithErrorHandler(h.del, h.ErrorHandler),
		opSummary("Delete contact"),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

func (h *Contacts) del(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" example:"1" doc:"ID of the contact to delete"`
}) (*struct{}, error) {
	err := h.Store.Delete(ctx, input.ID)
	if errors.Is(err, ds.ErrObjectNotFound) {
		return nil, huma.Error404NotFound("id not found", err)
	}
	return nil, err
}
