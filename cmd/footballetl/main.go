// Command footballetl ingests English league match results into a relational
// table and a Parquet archive.
//
// Usage:
//
//	footballetl ingest   [--season 2425] [--division E0]
//	footballetl backfill [--start-year 2000] [--end-year 2024] [--division E0]
//	footballetl discover [--start-year 2000] [--end-year 2024]
//	footballetl validate
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "footballetl:", err)
		os.Exit(1)
	}
}
