package bench

import (
	"context"
	"fmt"
	"testing"

	"footballetl/internal/cleaner"
	csvparser "footballetl/internal/parser/csv"
	"footballetl/internal/storage"
)

// BenchmarkEndToEnd exercises the hot path of cleaning plus batch loading in
// memory, with a COPY function that only counts rows.
//
// Run with:
//
//	go test -run=^$ -bench ^BenchmarkEndToEnd$ -cpuprofile cpu.out -memprofile mem.out -count=1
func BenchmarkEndToEnd(b *testing.B) {
	ctx := context.Background()

	c, err := cleaner.New(cleaner.Config{
		RequiredColumns: []string{"div", "date", "hometeam", "awayteam", "fthg", "ftag", "ftr", "b365h", "season"},
	})
	if err != nil {
		b.Fatalf("cleaner.New: %v", err)
	}

	// One season holds 380 fixtures; the benchmark uses a few seasons' worth
	// of distinct pairings so dedup keeps every row.
	raw := &csvparser.Table{Header: []string{"Div", "Date", "HomeTeam", "AwayTeam", "FTHG", "FTAG", "FTR", "B365H"}}
	for i := 0; i < 2000; i++ {
		raw.Records = append(raw.Records, []string{
			"E0",
			fmt.Sprintf("%02d/%02d/2024", i%28+1, i%12+1),
			fmt.Sprintf("Home %d", i),
			fmt.Sprintf("Away %d", i),
			"2", "1", "H", "1.85",
		})
	}

	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		return int64(len(rows)), nil
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f, _, err := c.Clean("2425", raw)
		if err != nil {
			b.Fatalf("Clean: %v", err)
		}
		st, err := storage.LoadBatches(ctx, f.Names(), storage.Feed(ctx, f.Rows), 500, copyFn, nil)
		if err != nil {
			b.Fatalf("LoadBatches: %v", err)
		}
		if st.Rows != int64(f.Len()) {
			b.Fatalf("loaded %d rows, want %d", st.Rows, f.Len())
		}
	}
}
