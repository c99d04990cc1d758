package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/oaiiae/huma-addressbook/cli/api"
	"github.com/oaiiae/huma-addressbook/cli/logger"
)

const title = "Address book"

// Set at link time with -ldflags "-X main.version=...".
var (
	version  = "dev"
	revision = ""
	created  = ""
)

// Options for the CLI. Pass `--port` or set the `SERVICE_PORT` env var.
type Options struct {
	logger.Options
	api.ServerOptions
	api.RouterOptions
	api.StoreOptions
	api.EventsOptions
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		log := logger.New(&options.Options)

		store, closeStore, err := api.NewStore(context.Background(), &options.StoreOptions, log)
		if err != nil {
			log.Error("could not open contacts store", "err", err)
			os.Exit(1)
		}
		feed, publishers, closeEvents, err := api.NewEvents(&options.EventsOptions, log)
		if err != nil {
			log.Error("could not set up events", "err", err)
			os.Exit(1)
		}

		srv := api.NewServer(&options.ServerOptions,
			api.NewRouter(&options.RouterOptions, title, version, revision, created, log, store, feed, publishers),
			log,
		)
		hooks.OnStart(func() {
			log.Info("listening", "addr", srv.Addr)
			err := srv.ListenAndServe()
			if err != http.ErrServerClosed {
				log.Error("failed to listen and serve", "err", err)
			} else {
				log.Info("server closed")
			}
		})
		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			err := srv.Shutdown(ctx)
			if err != nil {
				log.Warn("could not shutdown the server", "err", err)
			}
			closeEvents()
			if err := closeStore(); err != nil {
				log.Warn("could not close the store", "err", err)
			}
		})
	})
	cli.Run()
}
