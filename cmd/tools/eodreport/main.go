// eodreport summarizes a trade log into per-symbol percentage moves and
// pushes the result as a phone notification.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"main/internal/journal"
	"main/internal/ops"
)

func main() {
	tradeLogPath := flag.String("trade-log", "trade_log.txt", "Trade log to summarize")
	title := flag.String("title", "EOD trading report", "Notification title")
	dryRun := flag.Bool("dry-run", false, "Print the report without pushing")
	flag.Parse()

	records, err := journal.ReadLog(*tradeLogPath)
	if err != nil {
		log.Fatalf("read trade log: %v", err)
	}
	summary := journal.Summarize(records)
	fmt.Print(summary.String())

	if *dryRun {
		return
	}

	env := ops.LoadEnv()
	notifier := journal.NewNotifier(&http.Client{Timeout: 15 * time.Second}, env.PushbulletKey)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := notifier.PushNote(ctx, *title, summary.String()); err != nil {
		log.Fatalf("push report: %v", err)
	}
}
