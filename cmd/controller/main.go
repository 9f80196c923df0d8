package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/codec"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/httpapi"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/journal"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/metrics"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
)

// #region main
func main() {
	dbPath := envOr("POLICY_DB", "nice_policy.db")
	grpcAddr := envOr("POLICY_GRPC_ADDR", "localhost:50061")
	httpAddr := envOr("POLICY_HTTP_ADDR", "localhost:8061")

	config := policy.DefaultConfig()
	staleness, err := policy.ParseStaleness(os.Getenv("POLICY_STALENESS"))
	if err != nil {
		log.Fatalf("POLICY_STALENESS: %v", err)
	}
	config.Staleness = staleness

	jcfg := journal.DefaultConfig()
	if v := os.Getenv("SNAPSHOT_EVERY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Fatalf("SNAPSHOT_EVERY: want a non-negative integer, got %q", v)
		}
		jcfg.SnapshotEvery = n
	}

	store, err := state.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	p := policy.New(config)
	j, err := journal.New(jcfg, p, store, m)
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", grpcAddr, err)
	}
	grpcServer := grpc.NewServer()
	codec.Register(grpcServer, codec.NewServer(p, j))

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: httpapi.NewServer(p, j, reg, jcfg.Eval).Router(),
	}

	errc := make(chan error, 2)
	go func() { errc <- grpcServer.Serve(lis) }()
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	fmt.Println("Nice policy controller ready.")
	fmt.Printf("  DB: %s | gRPC: %s | HTTP: %s | staleness: %s | snapshot every %d rewards\n",
		dbPath, grpcAddr, httpAddr, config.Staleness, jcfg.SnapshotEvery)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		log.Printf("received %s, shutting down", sig)
	case err := <-errc:
		log.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	grpcServer.GracefulStop()

	// Weights are not reloaded on start; this snapshot is for inspection.
	if rec, err := j.Checkpoint(); err != nil {
		log.Printf("final snapshot: %v", err)
	} else {
		log.Printf("final snapshot %s (%d decisions, %d rewards)", rec.SnapshotID, rec.Decisions, rec.Rewards)
	}
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
