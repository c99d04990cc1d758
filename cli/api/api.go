package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	ds "github.com/oaiiae/huma-addressbook/datastores"
	"github.com/oaiiae/huma-addressbook/events"
	"github.com/oaiiae/huma-addressbook/handlers"
	"github.com/oaiiae/huma-addressbook/router"
)

type ServerOptions struct {
	Host              string        `short:"H" doc:"host to listen on"                    default:""`
	Port              string        `short:"p" doc:"port to listen on"                    default:"8888"`
	ReadHeaderTimeout time.Duration `          doc:"time allowed to read request headers" default:"15s"`
}

func NewServer(options *ServerOptions, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              options.Host + ":" + options.Port,
		ReadHeaderTimeout: options.ReadHeaderTimeout,
		Handler:           handler,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

type StoreOptions struct {
	Store     string `doc:"contacts store, inmem or sqlite"                default:"inmem"`
	SQLiteDSN string `doc:"sqlite data source name"                        default:":memory:"`
	Seed      string `doc:"YAML file of contacts to create at startup"`
}

// NewStore opens the configured store and seeds it.
// The returned function releases the store.
func NewStore(ctx context.Context, options *StoreOptions, logger *slog.Logger) (ds.ContactsStore, func() error, error) {
	var (
		store     ds.ContactsStore
		closeFunc = func() error { return nil }
	)
	switch strings.ToLower(options.Store) {
	case "", "inmem":
		store = ds.NewContactsInmem()
	case "sqlite":
		sqlite, err := ds.OpenContactsSQLite(ctx, options.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		store, closeFunc = sqlite, sqlite.Close
	default:
		return nil, nil, fmt.Errorf("unknown store %q", options.Store)
	}

	if options.Seed != "" {
		err := seed(ctx, store, options.Seed, logger)
		if err != nil {
			closeFunc() //nolint: errcheck // already failing
			return nil, nil, err
		}
	}
	return store, closeFunc, nil
}

func seed(ctx context.Context, store ds.ContactsStore, path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	contacts, err := ds.LoadSeed(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = ds.Seed(ctx, store, contacts, logger)
	return err
}

type EventsOptions struct {
	WebsocketPing time.Duration `doc:"interval of pings on the change feed"                           default:"30s"`
	MQTTBroker    string        `doc:"publish contact changes to this broker, e.g. tcp://host:1883"`
	MQTTTopic     string        `doc:"topic prefix of published changes"                             default:"addressbook/contacts"`
	MQTTClientID  string        `doc:"client identifier on the broker"                               default:"addressbook"`
	MQTTUsername  string        `doc:"username on the broker"`
	MQTTPassword  string        `doc:"password on the broker"`
	MQTTQoS       int           `doc:"quality of service of published changes"                       default:"0"`
}

// NewEvents returns the websocket change feed and every publisher contact
// changes go to, the feed included. The returned function disconnects them.
func NewEvents(options *EventsOptions, logger *slog.Logger) (*events.Hub, events.Publishers, func(), error) {
	feed := events.NewHub(events.HubOptions{PingInterval: options.WebsocketPing}, logger.With("component", "feed"))
	publishers := events.Publishers{feed}
	closers := []func(){feed.Close}

	if options.MQTTBroker != "" {
		if options.MQTTQoS < 0 || options.MQTTQoS > 2 {
			return nil, nil, nil, events.ErrMQTTQoS
		}
		mqtt, err := events.DialMQTT(&events.MQTTOptions{
			Broker:   options.MQTTBroker,
			ClientID: options.MQTTClientID,
			Username: options.MQTTUsername,
			Password: options.MQTTPassword,
			Topic:    options.MQTTTopic,
			QoS:      byte(options.MQTTQoS),
		}, logger.With("component", "mqtt"))
		if err != nil {
			feed.Close()
			return nil, nil, nil, err
		}
		publishers = append(publishers, mqtt)
		closers = append(closers, mqtt.Close)
	}

	return feed, publishers, func() {
		for _, closeFunc := range closers {
			closeFunc()
		}
	}, nil
}

type RouterOptions struct {
	EndpointsPrefix string `doc:"mount endpoints at a prefix"                         default:"/api"`
	BaseURI         string `doc:"prefix of contact hrefs, the endpoints prefix if empty"`
	Admin           bool   `doc:"mount administrative endpoints"`
}

// NewRouter serves the contacts API on store. When publisher is not nil,
// every change is published to it; when feed is not nil, it is served at
// <prefix>/contacts/events.
func NewRouter(
	options *RouterOptions,
	title string,
	version string,
	revision string,
	created string,
	logger *slog.Logger,
	store ds.ContactsStore,
	feed http.Handler,
	publisher events.Publisher,
) http.Handler {
	baseURI := options.BaseURI
	if baseURI == "" {
		baseURI = options.EndpointsPrefix
	}
	if publisher != nil {
		store = &ds.ContactsNotifier{
			ContactsStore: store,
			Notify:        events.Notify(publisher, func(id ds.ContactID) string { return handlers.Href(baseURI, id) }),
		}
	}

	buildinfoMetric := joinQuote("build_info{goversion=", runtime.Version(),
		",title=", title,
		",version=", version,
		",revision=", revision,
		",created=", created,
		"} 1\n")
	metriks := metrics.NewSet()
	metriks.NewGauge("contacts_stored", func() float64 {
		contacts, err := store.List(context.Background())
		if err != nil {
			return 0
		}
		return float64(len(contacts))
	})

	errorHandler := ctxlog{}.errorHandler(logger)
	endpoints := []func(huma.API){
		router.OptAutoRegister(&handlers.Contacts{
			Store:        store,
			BaseURI:      baseURI,
			ErrorHandler: errorHandler,
		}),
	}
	if options.Admin {
		endpoints = append(endpoints, router.OptAutoRegister(&handlers.Admin{
			Store:        store,
			ErrorHandler: errorHandler,
		}))
	}

	opts := []func(huma.API){
		router.OptUseMiddleware(
			ctxlog{}.loggerMiddleware(logger),
			meterRequests(metriks),
			ctxlog{}.recoverMiddleware(logger),
		),
		router.OptGroup(options.EndpointsPrefix, endpoints...),
	}
	if feed != nil {
		opts = append(opts, router.OptHandle(http.MethodGet, options.EndpointsPrefix+"/contacts/events", feed))
	}

	return router.New(title, version,
		readiness(store),
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, buildinfoMetric)
			metriks.WritePrometheus(w)
			metrics.WriteProcessMetrics(w)
		},
		opts...,
	)
}

// readiness fails while the store cannot be listed.
func readiness(store ds.ContactsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if _, err := store.List(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		}
	}
}

// ctxlog is a [context.Context] key and acts as a virtual package for operations related to it.
type ctxlog struct{}

// loggerMiddleware returns a middleware that sets a [slog.Logger] in
// the [context.Context] and logs the request after it has terminated.
// Requests without an X-Request-Id header get a generated one, echoed in the response.
func (key ctxlog) loggerMiddleware(parent *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := ctx.Header("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx.SetHeader("X-Request-Id", requestID)
		logger := parent.With("x-request-id", requestID)

		start := time.Now()
		next(huma.WithValue(ctx, key, logger.WithGroup("op").With("id", ctx.Operation().OperationID)))

		logger.LogAttrs(context.Background(), slog.LevelInfo,
			joinSpace(ctx.Operation().Method, ctx.Operation().Path, ctx.Version().Proto),
			slog.String("from", ctx.RemoteAddr()),
			slog.String("ref", ctx.Header("Referer")),
			slog.String("ua", ctx.Header("User-Agent")),
			slog.Int("status", ctx.Status()),
			slog.Duration("dur", time.Since(start)),
		)
	}
}

// recoverMiddleware returns a middleware that recovers and logs the value from panic.
// Also sets status response to [http.StatusInternalServerError].
func (key ctxlog) recoverMiddleware(fallback *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			v := recover()
			if v != nil {
				logger, ok := ctx.Context().Value(key).(*slog.Logger)
				if !ok {
					logger = fallback
				}
				logger.LogAttrs(context.Background(), slog.LevelError, "panic occurred", slog.Any("recovered", v))
				ctx.SetStatus(http.StatusInternalServerError)
			}
		}()
		next(ctx)
	}
}

// errorHandler returns a function that gets the [slog.Logger] from [context.Context] and logs the error.
func (key ctxlog) errorHandler(fallback *slog.Logger) func(context.Context, error) {
	return func(ctx context.Context, err error) {
		level := slog.LevelError
		attrs := []slog.Attr{slog.Any("err", err)}

		var statusErr huma.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.GetStatus() / 100 {
			case 5: //nolint: mnd // 5XX HTTP Status Codes
				level = slog.LevelError
			case 4: //nolint: mnd // 4XX HTTP Status Codes
				level = slog.LevelWarn
			case 3: //nolint: mnd // 3XX HTTP Status Codes
				level = slog.LevelInfo
			}
			attrs = append(attrs, slog.Int("status", statusErr.GetStatus()))
		}

		logger, ok := ctx.Value(key).(*slog.Logger)
		if !ok {
			logger = fallback
		}
		logger.LogAttrs(context.Background(), level, "error occurred", attrs...)
	}
}

func meterRequests(set *metrics.Set) func(huma.Context, func(huma.Context)) {
	type ref struct {
		*metrics.Counter
		*metrics.PrometheusHistogram
	}

	refs := sync.Map{}
	refsMu := sync.Mutex{}
	buckets := metrics.ExponentialBuckets(1e-3, 5, 6) //nolint: mnd // arbitrary

	return func(ctx huma.Context, next func(huma.Context)) {
		op, start := ctx.Operation(), time.Now()
		next(ctx)

		uid := op.OperationID + http.StatusText(ctx.Status())
		val, ok := refs.Load(uid)
		if !ok {
			refsMu.Lock()
			val, ok = refs.Load(uid)
			if !ok {
				labels := joinQuote("{method=", op.Method, ",path=", op.Path, ",status=", strconv.Itoa(ctx.Status()), "}") //nolint: golines
				val = ref{
					set.NewCounter("http_requests_total" + labels),
					set.NewPrometheusHistogramExt("http_request_duration_seconds"+labels, buckets),
				}
				refs.Store(uid, val)
			}
			refsMu.Unlock()
		}
		valref := val.(ref) //nolint: errcheck // always true
		valref.Counter.Inc()
		valref.PrometheusHistogram.UpdateDuration(start)
	}
}

// joinQuote is [strings.Join] with " as separator.
func joinQuote(elems ...string) string { return strings.Join(elems, `"`) }

// joinSpace is [strings.Join] with space as separator.
func joinSpace(elems ...string) string { return strings.Join(elems, ` `) }
