// Paper replays a scripted scenario through the execution engine
// against the sim gateway: ticks prime the market, signals run through
// the full validation/submission path, every accepted order is filled,
// and the tool prints the resulting rows and round-trip PnL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"main/internal/contract"
	"main/internal/director"
	"main/internal/engine"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/pnl"
	"main/internal/position"
	"main/internal/reconcile"
	"main/internal/store"
	"main/pkg/conn"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
)

type scenario struct {
	Ticks   []gateway.Tick `json:"ticks"`
	Signals []paperSignal  `json:"signals"`
}

type paperSignal struct {
	Symbol   string  `json:"symbol"`
	Action   string  `json:"action"`
	Price    float64 `json:"price"`
	Volume   int     `json:"volume"`
	Strategy string  `json:"strategy"`
}

func main() {
	scenarioPath := flag.String("scenario", "", "Path to JSON scenario (default: built-in round trip)")
	multiplier := flag.Float64("multiplier", 10, "Default contract multiplier for unlisted roots")
	tolerance := flag.Float64("tolerance", 0, "Relative price tolerance (0=disabled)")
	maxPosition := flag.Int("max-position", 2, "Per-symbol position limit")
	flag.Parse()

	sc, err := loadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("scenario load failed: %v", err)
	}

	client, err := conn.New(conn.Option{Driver: conn.DriverSQLite, ConnString: ":memory:"})
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer client.Close()

	st := store.New(client.DB())
	if err := st.Migrate(); err != nil {
		log.Fatalf("store migration failed: %v", err)
	}

	// Callbacks run inline so every fill is reconciled before the
	// summary is read.
	sim := gateway.NewSim()
	sim.Attach(reconcile.New(st))

	ref := contract.NewReference(*multiplier)
	eng := engine.New(
		engine.Config{PriceTolerance: *tolerance, MaxPosition: *maxPosition},
		st, sim, position.NewLedger(sim), director.New(ref),
		obs.NewMetrics(prometheus.NewRegistry()),
	)

	for _, tick := range sc.Ticks {
		if err := sim.ApplyTick(tick); err != nil {
			log.Fatalf("apply tick %s: %v", tick.Symbol, err)
		}
	}

	base := time.Now().UTC()
	for i, ps := range sc.Signals {
		sig := model.Signal{
			Symbol:    ps.Symbol,
			Action:    model.Action(ps.Action),
			Price:     ps.Price,
			Volume:    ps.Volume,
			Strategy:  ps.Strategy,
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := st.InsertPending(&sig); err != nil {
			log.Fatalf("insert signal %d: %v", i, err)
		}
	}

	if err := eng.Tick(context.Background()); err != nil {
		log.Fatalf("engine tick failed: %v", err)
	}
	for _, orderID := range sim.OrderIDs() {
		if err := sim.Fill(orderID); err != nil {
			log.Fatalf("fill %s: %v", orderID, err)
		}
	}

	rows, err := st.Recent(0)
	if err != nil {
		log.Fatalf("read rows failed: %v", err)
	}
	for _, row := range rows {
		fmt.Printf("signal %d: %s %s price:%.2f volume:%d status:%s %s\n",
			row.ID, row.Symbol, row.Action, row.Price, row.Volume, row.Status, row.Message)
	}

	filled, err := st.Filled()
	if err != nil {
		log.Fatalf("read filled failed: %v", err)
	}
	total := 0.0
	trades := pnl.Reconstruct(ref, filled)
	for _, tr := range trades {
		total += tr.Profit
		fmt.Printf("trade %s %s open:%.2f close:%.2f volume:%d fee:%.2f profit:%.2f\n",
			tr.Symbol, tr.Direction, tr.OpenPrice, tr.ClosePrice, tr.Volume, tr.Fee, tr.Profit)
	}

	log.Printf("paper completed: signals=%d orders=%d trades=%d pnl=%.2f",
		len(sc.Signals), len(sim.OrderIDs()), len(trades), total)
}

func loadScenario(path string) (scenario, error) {
	if path == "" {
		return defaultScenario(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return scenario{}, err
	}
	var sc scenario
	if err := sonic.ConfigFastest.Unmarshal(raw, &sc); err != nil {
		return scenario{}, err
	}
	return sc, nil
}

func defaultScenario() scenario {
	return scenario{
		Signals: []paperSignal{
			{Symbol: "RB2510", Action: "BUY", Price: 3500, Volume: 1, Strategy: "paper"},
			{Symbol: "RB2510", Action: "SELL_CLOSE", Price: 3550, Volume: 1, Strategy: "paper"},
		},
	}
}
