package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lysand-org/lysand/federation"
	"github.com/lysand-org/lysand/inbox"
	"github.com/lysand-org/lysand/mastodon"
	"github.com/lysand-org/lysand/models"
	"github.com/lysand-org/lysand/relationships"
	"github.com/lysand-org/lysand/streaming"
	"github.com/lysand-org/lysand/wellknown"
	"github.com/lysand-org/lysand/workers"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	Addr            string        `help:"address to listen" default:"127.0.0.1:9999"`
	Redis           string        `help:"redis address or URL to publish notifications to; notifications are streamed in process if unset" env:"LYSAND_REDIS"`
	UnfollowOnBlock bool          `help:"end follows in both directions when an account is blocked"`
	DeliveryTimeout time.Duration `help:"timeout for delivering objects to remote inboxes" default:"10s"`
	Proxy           *url.URL      `help:"proxy for outbound federation requests" env:"LYSAND_PROXY"`
	ProcessInterval time.Duration `help:"interval between passes over queued relationship requests" default:"30s"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []federation.ClientOption{federation.WithTimeout(s.DeliveryTimeout)}
	if s.Proxy != nil {
		opts = append(opts, federation.WithProxy(s.Proxy))
	}
	client := federation.NewClient(db, opts...)

	var broker streaming.Broker
	var streams *streaming.Mux
	if s.Redis != "" {
		rdb, err := streaming.NewRedis(sctx, s.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		broker = rdb
	} else {
		streams = new(streaming.Mux)
		broker = streams
	}

	svc := relationships.New(db,
		relationships.WithDeliverer(client),
		relationships.WithNotifier(&streaming.Publisher{
			Notifier: models.NewNotifications(db),
			Broker:   broker,
		}),
		relationships.WithLogger(ctx.Logger),
	)
	env := &models.Env{
		DB:     db,
		Logger: ctx.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if ctx.Debug {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Route("/api", mastodon.Routes(&mastodon.Env{
		Env:             env,
		Relationships:   svc,
		Streams:         streams,
		UnfollowOnBlock: s.UnfollowOnBlock,
	}))
	r.Group(inbox.Routes(&inbox.Env{
		Env:           env,
		Relationships: svc,
	}))
	r.Route("/.well-known", wellknown.Routes(env))
	r.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		// no robots, especially not you Bingbot!
		io.WriteString(w, "User-agent: *\nDisallow: /")
	})

	if ctx.Debug {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			ctx.Logger.Debug("route", "method", method, "route", strings.Replace(route, "/*/", "/", -1))
			return nil
		}
		if err := chi.Walk(r, walkFunc); err != nil {
			return err
		}
	}

	svr := &http.Server{
		Addr:        s.Addr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		<-gctx.Done()
		ctx.Logger.Info("shutting down")
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return svr.Shutdown(shutdown)
	})
	g.Go(func() error {
		ctx.Logger.Info("listening", "addr", s.Addr)
		if err := svr.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return workers.NewRelationshipRequestProcessor(db, client, ctx.Logger, s.ProcessInterval)(gctx)
	})
	return g.Wait()
}
