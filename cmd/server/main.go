package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/imetrics/go-connect-server/audit"
	"github.com/imetrics/go-connect-server/coordinator"
	"github.com/imetrics/go-connect-server/flowstate"
	"github.com/imetrics/go-connect-server/grants"
	"github.com/imetrics/go-connect-server/identity"
	"github.com/imetrics/go-connect-server/internal/config"
	"github.com/imetrics/go-connect-server/internal/storage"
	"github.com/imetrics/go-connect-server/provider"
	"github.com/imetrics/go-connect-server/reportcache"
	"github.com/imetrics/go-connect-server/server"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	repos, err := buildRepos(c)
	if err != nil {
		return fmt.Errorf("buildRepos: %w", err)
	}

	stateCodec, err := flowstate.NewCodec(c.GetStateSecret(), c.GetStateTokenTTL())
	if err != nil {
		return fmt.Errorf("flowstate.NewCodec: %w", err)
	}

	coord, err := coordinator.New(
		repos,
		provider.NewHTTPClient(c),
		stateCodec,
		coordinator.WithCacheTTL(c.GetMetricsCacheTTL()),
	)
	if err != nil {
		return fmt.Errorf("coordinator.New: %w", err)
	}

	handler, err := server.New(c, coord, identity.NewInMemorySessionRepo())
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildRepos selects the record store backend from configuration. The memory
// driver keeps everything in process; sqlite and postgres share the GORM
// repositories.
func buildRepos(c config.Config) (coordinator.Repos, error) {
	driver := c.GetStorageDriver()
	if driver == "memory" {
		return coordinator.Repos{
			Grants:  grants.NewInMemoryRepo(),
			Pending: flowstate.NewInMemoryRepo(),
			Cache:   reportcache.NewInMemoryRepo(),
			Audit:   audit.NewInMemoryRepo(),
		}, nil
	}

	db, err := storage.Open(driver, c.GetStorageDSN())
	if err != nil {
		return coordinator.Repos{}, fmt.Errorf("storage.Open: %w", err)
	}

	return coordinator.Repos{
		Grants:  storage.NewGormGrantRepository(db),
		Pending: flowstate.NewInMemoryRepo(),
		Cache:   storage.NewGormReportCacheRepository(db),
		Audit:   storage.NewGormAuditRepository(db),
	}, nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
