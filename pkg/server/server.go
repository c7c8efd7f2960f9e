package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/Peripli/character-gallery/pkg/server/middleware"
	"github.com/Peripli/service-manager/pkg/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// Controller registers its routes on the router
type Controller interface {
	Routes(router *mux.Router)
}

// Server type glues the gallery routes, the middlewares and the HTTP listener
type Server struct {
	Router *mux.Router

	Config *Settings
}

// New builds a new Server from the provided configuration serving the routes of the given controllers
func New(config *Settings, controllers ...Controller) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(middleware.LogRequest())
	router.Use(middleware.Recover())
	for _, controller := range controllers {
		controller.Routes(router)
	}

	return &Server{
		Router: router,
		Config: config,
	}, nil
}

// Use provides a way to plugin middleware in the Server
func (s *Server) Use(middleware func(handler http.Handler) http.Handler) {
	s.Router.Use(middleware)
}

func (s *Server) run(ctx context.Context, addr string, listenAndServe func(srv *http.Server) error) error {
	log.C(ctx).Infof("Starting server on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: s.Config.RequestTimeout,
		ReadTimeout:       s.Config.RequestTimeout,
	}
	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), s.Config.ShutdownTimeout)
		defer cancel()
		if srv.Shutdown(c) != nil {
			srv.Close()
		}
	}()
	return listenAndServe(srv)
}

// Run starts serving and blocks until ctx is cancelled and the server has shut down
func (s *Server) Run(ctx context.Context, group *sync.WaitGroup) {
	group.Add(1)
	defer group.Done()

	addr := ":" + strconv.Itoa(s.Config.Port)
	listenAndServe := func(srv *http.Server) error {
		return srv.ListenAndServe()
	}

	err := s.run(ctx, addr, listenAndServe)
	if err != nil && err != http.ErrServerClosed && err != context.Canceled && err != context.DeadlineExceeded {
		log.C(ctx).WithError(errors.WithStack(err)).Errorln("Error occurred while the server was running")
	}
}
