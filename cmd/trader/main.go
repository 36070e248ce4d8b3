package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/app"
	feedalpaca "main/internal/feed/alpaca"
	"main/internal/ingest"
	"main/internal/journal"
	"main/internal/market"
	"main/internal/monitor"
	"main/internal/obs"
	"main/internal/ops"
	orderalpaca "main/internal/order/alpaca"
	"main/internal/slot"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to the JSON setups file")
	tradeLogPath := flag.String("trade-log", "trade_log.txt", "Trade log output path")
	streamLogDir := flag.String("stream-log-dir", ".", "Directory for per-symbol price stream logs")
	maxConcurrent := flag.Int("max-concurrent", 4, "Concurrent open position limit")
	pollInterval := flag.Duration("poll-interval", time.Second, "Monitor poll interval")
	eodClock := flag.String("eod", "23:30", "Forced liquidation time (UTC, HH:MM)")
	lateEntryClock := flag.String("late-entry", "23:00", "No new entries after this time (UTC, HH:MM)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus listen address (empty=disabled)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	env := ops.LoadEnv()
	if env.APIKey == "" || env.SecretKey == "" {
		log.Fatal("API_KEY and SECRET_KEY must be set")
	}

	eod, err := cutoffAt(time.Now().UTC(), *eodClock)
	if err != nil {
		log.Fatalf("bad -eod: %v", err)
	}
	lateEntry, err := cutoffAt(time.Now().UTC(), *lateEntryClock)
	if err != nil {
		log.Fatalf("bad -late-entry: %v", err)
	}

	setups, err := ops.NewFileSource(*configPath)
	if err != nil {
		log.Fatalf("load setups: %v", err)
	}

	streamLog, err := journal.NewStreamLog(*streamLogDir)
	if err != nil {
		log.Fatalf("open stream logs: %v", err)
	}
	defer streamLog.Close()

	var store *journal.Store
	if env.DatabaseDSN != "" {
		client, err := conn.Open(env.DatabaseDSN, nil)
		if err != nil {
			log.Fatalf("connect journal db: %v", err)
		}
		defer client.Close()
		if store, err = journal.NewStore(client); err != nil {
			log.Fatalf("prepare journal db: %v", err)
		}
	}

	tradeLog, err := journal.OpenTradeLog(*tradeLogPath, store)
	if err != nil {
		log.Fatalf("open trade log: %v", err)
	}
	defer tradeLog.Close()

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   *pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Warnf("pyroscope start, err: %+v", err)
		} else {
			defer profiler.Stop()
		}
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", obs.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logs.Warnf("metrics server stopped, err: %+v", err)
			}
		}()
	}

	state := market.NewState()
	feed := feedalpaca.NewStream(feedalpaca.Config{Key: env.APIKey, Secret: env.SecretKey})
	handler := ingest.NewHandler(ingest.HandlerConfig{}, setups, state, streamLog)
	stream := ingest.NewSupervisor(ingest.SupervisorConfig{}, feed, handler)
	gateway := orderalpaca.NewClient(&http.Client{Timeout: 10 * time.Second}, env.APIKey, env.SecretKey, env.PaperTrading)

	a := app.New(
		setups,
		state,
		slot.NewManager(*maxConcurrent),
		gateway,
		stream,
		app.NewShutdown(setups, stream, feed),
		tradeLog,
		monitor.Config{
			PollInterval:    *pollInterval,
			EODCutoff:       eod,
			LateEntryCutoff: lateEntry,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		logs.Errorf("trader stopped, err: %+v", err)
		os.Exit(1)
	}
}

// cutoffAt anchors an HH:MM wall clock onto day's date in UTC.
func cutoffAt(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
