// Package gallery wires configuration, the character API client, the session store and the HTTP
// server into the runnable character gallery.
package gallery

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Peripli/character-gallery/pkg/characterapi"
	"github.com/Peripli/character-gallery/pkg/logging"
	"github.com/Peripli/character-gallery/pkg/server"
	"github.com/Peripli/character-gallery/pkg/server/middleware"
	"github.com/Peripli/character-gallery/pkg/session"
	"github.com/Peripli/service-manager/pkg/env"
	"github.com/Peripli/service-manager/pkg/log"
	"github.com/pkg/errors"
)

// Gallery type is the starting point of the application. It glues the gallery REST API and the
// sweeping of expired sessions.
type Gallery struct {
	Server   *server.Server
	Sessions *session.Store
	Settings *Settings

	ctx    context.Context
	cancel context.CancelFunc
	group  *sync.WaitGroup
}

// New builds a new Gallery from the provided environment. It panics when the configuration is
// unusable since the gallery cannot start without it.
func New(ctx context.Context, env env.Environment) *Gallery {
	settings, err := NewSettings(env)
	if err != nil {
		panic(errors.Wrap(err, "error loading configuration"))
	}
	if err = settings.Validate(); err != nil {
		panic(errors.Wrap(err, "error validating configuration"))
	}

	logging.Setup(settings.Log)

	client, err := characterapi.NewClient(settings.API)
	if err != nil {
		panic(errors.Wrap(err, "error creating character API client"))
	}

	sessions := session.NewStore(settings.Gallery.SessionTTL, settings.Gallery.MaxSessions)
	srv, err := server.New(settings.Server, &server.GalleryController{
		Client:         client,
		Sessions:       sessions,
		Title:          settings.Gallery.Title,
		RequestTimeout: settings.Server.RequestTimeout,
		PingPeriod:     settings.Server.WSPingPeriod,
	})
	if err != nil {
		panic(errors.Wrap(err, "error creating server"))
	}
	if settings.Gallery.BasicAuthEnabled() {
		srv.Use(middleware.BasicAuth(settings.Gallery.User, settings.Gallery.PasswordHash))
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Gallery{
		Server:   srv,
		Sessions: sessions,
		Settings: settings,
		ctx:      ctx,
		cancel:   cancel,
		group:    &sync.WaitGroup{},
	}
}

// Use provides a way to plugin middleware in the Gallery
func (g *Gallery) Use(middleware func(handler http.Handler) http.Handler) {
	g.Server.Use(middleware)
}

// Run is the entrypoint of the Gallery. It blocks until the process is interrupted and everything
// has shut down.
func (g *Gallery) Run() {
	defer waitWithTimeout(g.ctx, g.group, g.Settings.Server.ShutdownTimeout)
	defer g.cancel()

	handleInterrupts(g.ctx, g.cancel)

	g.Sessions.Start(g.ctx, g.Settings.Gallery.SweepInterval, g.group)

	log.C(g.ctx).Info("Running character gallery...")
	g.Server.Run(g.ctx, g.group)
}

// handleInterrupts handles OS interrupt signals by canceling the context
func handleInterrupts(ctx context.Context, cancel context.CancelFunc) {
	term := make(chan os.Signal, 1)
	signal.Notify(term, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(term)
		select {
		case <-term:
			log.C(ctx).Error("Received OS interrupt, exiting gracefully...")
			cancel()
		case <-ctx.Done():
			return
		}
	}()
}

// waitWithTimeout waits for a WaitGroup to finish for a certain duration and times out afterwards
// WaitGroup parameter should be pointer or else the copy won't get notified about .Done() calls
func waitWithTimeout(ctx context.Context, group *sync.WaitGroup, timeout time.Duration) {
	c := make(chan struct{})
	go func() {
		defer close(c)
		group.Wait()
	}()
	select {
	case <-c:
		log.C(ctx).Debug("Shutdown finished successfully")
	case <-time.After(timeout):
		log.C(ctx).Errorf("Shutdown took more than %s", timeout)
	}
}
