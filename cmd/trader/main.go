// Trader runs the signal execution engine against the in-process sim
// gateway: HTTP intake writes pending signals, the poll loop turns
// them into orders, the reconciler consumes gateway callbacks. Swap
// the sim for a real venue adapter to go live.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"main/internal/contract"
	"main/internal/director"
	"main/internal/engine"
	"main/internal/gateway"
	"main/internal/intake"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/position"
	"main/internal/reconcile"
	"main/internal/store"
	"main/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yanun0323/logs"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "signal-trader",
			ServerAddress:   loaded.Profiling.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer profiler.Stop()
	}

	// Inability to reach the store at startup is the one fatal error.
	client, err := conn.New(loaded.Conn)
	if err != nil {
		log.Fatalf("store connection failed: %v", err)
	}
	defer client.Close()

	st := store.New(client.DB())
	if err := st.Migrate(); err != nil {
		log.Fatalf("store migration failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw := gateway.NewSim()
	gw.Attach(reconcile.New(st))
	gw.Start(ctx)

	ref := contract.NewReference(loaded.DefaultMultiplier)
	ledger := position.NewLedger(gw)
	eng := engine.New(loaded.Engine, st, gw, ledger, director.New(ref), obs.NewMetrics(prometheus.DefaultRegisterer))

	srv := &http.Server{
		Addr:              loaded.IntakeAddr,
		Handler:           intake.NewServer(st, ref).Router(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logs.Infof("intake listening on %s", loaded.IntakeAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Errorf("intake server: %+v", err)
		}
	}()

	eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logs.Errorf("intake shutdown: %+v", err)
	}
}
