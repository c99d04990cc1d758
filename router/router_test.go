package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct{}

func (echo) RegisterEcho(api huma.API) {
	huma.Get(api, "/echo/{word}", func(_ context.Context, input *struct {
		Word string `path:"word"`
	}) (*struct {
		Body string
	}, error) {
		return &struct{ Body string }{Body: input.Word}, nil
	})
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestNew(t *testing.T) {
	var middlewareCalls int
	h := New("Test", "1.0.0",
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
		func(w http.ResponseWriter, _ *http.Request) { io.WriteString(w, "up 1\n") },
		OptUseMiddleware(func(ctx huma.Context, next func(huma.Context)) { middlewareCalls++; next(ctx) }),
		OptGroup("/api", OptAutoRegister(echo{})),
		OptHandle(http.MethodGet, "/raw", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})),
	)

	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/liveness").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, http.MethodGet, "/readiness").Code)
	assert.Equal(t, "up 1\n", serve(t, h, http.MethodGet, "/metrics").Body.String())

	rec := serve(t, h, http.MethodGet, "/api/echo/hello")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"hello"`, rec.Body.String())
	assert.Equal(t, 1, middlewareCalls)

	assert.Equal(t, http.StatusTeapot, serve(t, h, http.MethodGet, "/raw").Code)
	assert.Equal(t, 1, middlewareCalls, "raw handlers bypass middlewares")

	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/openapi.json").Code)
}

type greeting struct{}

func (greeting) RegisterGreeting(api huma.API) {
	type output struct {
		Body struct {
			Message string `json:"message"`
		}
	}
	huma.Get(api, "/greeting/{name}", func(_ context.Context, input *struct {
		Name string `path:"name"`
	}) (*output, error) {
		out := &output{}
		out.Body.Message = "Hello, " + input.Name + "!"
		return out, nil
	})
}

func TestConfigHasNoSchemaLinks(t *testing.T) {
	h := New("Test", "1.0.0",
		func(http.ResponseWriter, *http.Request) {},
		func(http.ResponseWriter, *http.Request) {},
		OptAutoRegister(greeting{}),
	)
	rec := serve(t, h, http.MethodGet, "/greeting/world")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Hello, world!"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Link"))
}
