package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/devserver"
	"github.com/bazrganidrwst/warehouse-client/internal/config"
	"github.com/bazrganidrwst/warehouse-client/internal/obs"
)

func main() {
	_ = godotenv.Load()
	c := config.New()
	obs.SetupLogger(c.GetEnv(), c.GetLogLevel())
	if err := obs.InitSentry(c.GetSentryDSN(), c.GetEnv()); err != nil {
		log.Warn().Err(err).Msg("sentry disabled")
	}
	defer obs.FlushSentry()

	if err := run(c); err != nil {
		log.Error().Err(err).Msg("dev server stopped with an error")
		obs.FlushSentry()
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			obs.CapturePanic(r)
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname("warehouse dev")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler, err := devserver.New(c, devserver.WithEnv(c.GetEnv()), devserver.WithMetrics(reg))
	if err != nil {
		return errors.Wrap(err, "[run] devserver.New")
	}

	server := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("dev server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "[listenAndServe] server.ListenAndServe")
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "[shutdown] server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
