// Package formwork runs a web service around a request-bound form: it renders
// the form, validates submissions and hands accepted ones to a worker.
package formwork

import (
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/G-Node/formwork/formwork/db"
	"github.com/G-Node/formwork/formwork/form"
	"github.com/G-Node/formwork/formwork/session"
	"github.com/G-Node/formwork/formwork/web"
	"github.com/G-Node/formwork/formwork/worker"
	bolt "go.etcd.io/bbolt"
)

// FormBuilder builds the service form for a single request.  The form must be
// created with the given environment so that it is bound to the request and
// the session of the caller.
type FormBuilder func(env form.Env) (*form.Form, error)

// Service represents a full service which contains a web server, a database
// for sessions and submissions, and a worker that processes accepted
// submissions.
type Service struct {
	web      *web.Server
	db       *db.Connection
	sessions *bolt.DB // nil unless the bolt session backend is configured
	worker   *worker.Worker
	log      *log.Logger
	build    FormBuilder
	metrics  *metrics
	Config   *Config
}

// NewService creates a new Service with a given form builder and submission
// action.
func NewService(build FormBuilder, action worker.SubmitAction, config Config) (*Service, error) {
	srv := new(Service)
	srv.log = log.New(os.Stderr, "", log.LstdFlags)
	config.setDefaults(srv.log)
	if err := config.validate(); err != nil {
		return nil, err
	}
	srv.Config = &config

	srv.log.Print("Initialising database")
	conn, err := db.New(config.DBPath)
	if err != nil {
		return nil, err
	}
	srv.db = conn

	if config.SessionBackend == BoltSessions {
		srv.log.Printf("Opening session database %s", config.BoltPath)
		srv.sessions, err = session.OpenBolt(config.BoltPath)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	srv.worker = worker.New(srv.db, config.QueueLength)
	srv.metrics = newMetrics()

	srv.web = web.New(config.Port)
	srv.setupWebRoutes()

	srv.SetFormBuilder(build)
	srv.SetSubmitAction(action)
	return srv, nil
}

// Start the service (worker and web server).
func (srv *Service) Start() error {
	if srv.build == nil {
		return fmt.Errorf("nil form builder is invalid")
	}
	if srv.worker.Action == nil {
		return fmt.Errorf("nil submit action is invalid")
	}

	srv.log.Print("Starting worker")
	srv.worker.Start()

	srv.log.Print("Starting web service")
	srv.web.Start()
	srv.log.Print("Web server started")
	return nil
}

// WaitForInterrupt blocks until the service receives an interrupt signal (SIGINT).
func (srv *Service) WaitForInterrupt() {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt)
	<-sigchan
}

// Stop the service by gracefully shutting down the web service, stopping the
// worker, and closing the database connection, in that order.
func (srv *Service) Stop() {
	srv.log.Print("Stopping web service")
	srv.web.Stop()

	srv.log.Print("Stopping worker queue")
	srv.worker.Stop()

	srv.log.Print("Closing database connection")
	srv.close()
	srv.log.Print("Service stopped")
}

// close closes the service database and, if open, the session database.
func (srv *Service) close() {
	if err := srv.db.Close(); err != nil {
		srv.log.Printf("Error closing database: %v", err)
	}
	if srv.sessions != nil {
		if err := srv.sessions.Close(); err != nil {
			srv.log.Printf("Error closing session database: %v", err)
		}
	}
}

// SetLogger sets the logger for the service, its web server and its worker.
func (srv *Service) SetLogger(logger *log.Logger) {
	srv.log = logger
	srv.web.SetLogger(logger)
	srv.worker.SetLogger(logger)
}

// SetFormBuilder can be used to set or override the form builder for the
// service.
func (srv *Service) SetFormBuilder(build FormBuilder) {
	srv.build = build
}

// SetSubmitAction can be used to set or override the submission action for
// the service.
func (srv *Service) SetSubmitAction(f worker.SubmitAction) {
	srv.worker.Action = f
}
