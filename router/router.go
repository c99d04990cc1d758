package router

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
)

// Config is [huma.DefaultConfig] without the $schema links, so response
// bodies carry only the documented fields.
func Config(title, version string) huma.Config {
	config := huma.DefaultConfig(title, version)
	config.CreateHooks = nil
	return config
}

// New returns a mux serving the liveness, readiness and metrics endpoints
// plus a huma API configured by opts.
func New(
	title, version string,
	readiness http.HandlerFunc,
	metrics http.HandlerFunc,
	opts ...func(huma.API),
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/liveness", func(http.ResponseWriter, *http.Request) {})
	mux.HandleFunc("/readiness", readiness)
	mux.HandleFunc("/metrics", metrics)

	api := humago.New(mux, Config(title, version))
	for _, opt := range opts {
		opt(api)
	}

	return mux
}

func OptUseMiddleware(middlewares ...func(huma.Context, func(huma.Context))) func(huma.API) {
	return func(api huma.API) { api.UseMiddleware(middlewares...) }
}

// OptGroup applies opts to a group of api mounted at prefix.
func OptGroup(prefix string, opts ...func(huma.API)) func(huma.API) {
	return func(api huma.API) {
		group := huma.NewGroup(api, prefix)
		for _, opt := range opts {
			opt(group)
		}
	}
}

// OptAutoRegister calls [huma.AutoRegister] for each server.
func OptAutoRegister(servers ...any) func(huma.API) {
	return func(api huma.API) {
		for _, server := range servers {
			huma.AutoRegister(api, server)
		}
	}
}

// OptHandle serves a plain [http.Handler] on the exact method and path,
// outside of the OpenAPI description and of the huma middlewares.
// It is meant for protocol upgrades such as websockets.
func OptHandle(method, path string, handler http.Handler) func(huma.API) {
	return func(api huma.API) {
		api.Adapter().Handle(&huma.Operation{Method: method, Path: path}, func(ctx huma.Context) {
			r, w := humago.Unwrap(ctx)
			handler.ServeHTTP(w, r)
		})
	}
}
