package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tollgate-data/gantryflow/internal/db"
)

// Kind selects which transaction table a batch targets.
type Kind string

const (
	KindGantry   Kind = "gantry"
	KindExit     Kind = "exit"
	KindEntrance Kind = "entrance"
)

// ParseKind validates a kind string from a flag.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGantry, KindExit, KindEntrance:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown kind %q (want gantry, exit, or entrance)", s)
	}
}

// Batch holds one generated batch of a single kind.
type Batch struct {
	Kind     Kind
	Gantry   []db.GantryTransaction
	Exit     []db.ExitTransaction
	Entrance []db.EntranceTransaction
}

// Generate mints a batch of n records of the given kind.
func (g *Generator) Generate(kind Kind, n int) (*Batch, error) {
	b := &Batch{Kind: kind}
	switch kind {
	case KindGantry:
		b.Gantry = g.GantryTransactions(n)
	case KindExit:
		b.Exit = g.ExitTransactions(n)
	case KindEntrance:
		b.Entrance = g.EntranceTransactions(n)
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return b, nil
}

// Len returns the batch size.
func (b *Batch) Len() int {
	return len(b.Gantry) + len(b.Exit) + len(b.Entrance)
}

// Insert writes the batch into the matching transaction table.
func (b *Batch) Insert(ctx context.Context, database *db.DB) error {
	switch b.Kind {
	case KindGantry:
		return database.InsertGantryTransactionsBatch(ctx, b.Gantry)
	case KindExit:
		return database.InsertExitTransactionsBatch(ctx, b.Exit)
	case KindEntrance:
		return database.InsertEntranceTransactionsBatch(ctx, b.Entrance)
	default:
		return fmt.Errorf("unknown kind %q", b.Kind)
	}
}

// WriteJSONL streams the batch as one JSON object per line.
func (b *Batch) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	write := func(v interface{}) error {
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		return nil
	}
	for _, t := range b.Gantry {
		if err := write(t); err != nil {
			return err
		}
	}
	for _, t := range b.Exit {
		if err := write(t); err != nil {
			return err
		}
	}
	for _, t := range b.Entrance {
		if err := write(t); err != nil {
			return err
		}
	}
	return nil
}
