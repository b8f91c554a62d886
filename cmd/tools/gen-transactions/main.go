// Command gen-transactions mints synthetic toll transactions, either
// straight into a database or as JSONL for piping elsewhere.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/tollgate-data/gantryflow/internal/db"
	"github.com/tollgate-data/gantryflow/internal/gen"
)

const batchSize = 1000

func main() {
	dbPath := flag.String("db", "", "insert into this database (mutually exclusive with -out)")
	out := flag.String("out", "", "write JSONL to this file, or - for stdout")
	n := flag.Int("n", 1000, "number of records")
	seed := flag.Uint64("seed", 1, "generator seed")
	modeStr := flag.String("mode", "stat", "sampling mode: rule or stat")
	kindStr := flag.String("kind", "gantry", "transaction kind: gantry, exit, or entrance")
	startStr := flag.String("start", "", "window start (YYYY-MM-DD, default 7 days ago)")
	endStr := flag.String("end", "", "window end (YYYY-MM-DD, default today)")
	flag.Parse()

	if (*dbPath == "") == (*out == "") {
		log.Fatal("Exactly one of -db or -out is required")
	}

	mode, err := gen.ParseMode(*modeStr)
	if err != nil {
		log.Fatalf("Invalid -mode: %v", err)
	}
	kind, err := gen.ParseKind(*kindStr)
	if err != nil {
		log.Fatalf("Invalid -kind: %v", err)
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		if end, err = time.Parse("2006-01-02", *endStr); err != nil {
			log.Fatalf("Invalid -end: %v", err)
		}
	}
	end = end.Add(24 * time.Hour) // include the end day
	start := end.Add(-8 * 24 * time.Hour)
	if *startStr != "" {
		if start, err = time.Parse("2006-01-02", *startStr); err != nil {
			log.Fatalf("Invalid -start: %v", err)
		}
	}

	g, err := gen.New(mode, *seed, start, end)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}

	if *dbPath != "" {
		insertBatches(g, kind, *n, *dbPath)
		return
	}
	writeJSONL(g, kind, *n, *out)
}

func insertBatches(g *gen.Generator, kind gen.Kind, n int, dbPath string) {
	database, err := db.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	inserted := 0
	for inserted < n {
		size := batchSize
		if remaining := n - inserted; remaining < size {
			size = remaining
		}
		batch, err := g.Generate(kind, size)
		if err != nil {
			log.Fatalf("Failed to generate batch: %v", err)
		}
		if err := batch.Insert(ctx, database); err != nil {
			log.Fatalf("Failed to insert batch: %v", err)
		}
		inserted += size
		log.Printf("%d/%d %s transactions", inserted, n, kind)
	}
	log.Printf("✓ Inserted %d %s transactions into %s", n, kind, dbPath)
}

func writeJSONL(g *gen.Generator, kind gen.Kind, n int, out string) {
	w := os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		w = f
	}

	batch, err := g.Generate(kind, n)
	if err != nil {
		log.Fatalf("Failed to generate batch: %v", err)
	}
	if err := batch.WriteJSONL(w); err != nil {
		log.Fatalf("Failed to write JSONL: %v", err)
	}
	if out != "-" {
		log.Printf("✓ Wrote %d %s transactions to %s", n, kind, out)
	}
}
