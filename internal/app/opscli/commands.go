package opscli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/libraryhub/internal/app/services/catalog"
	bookstore "github.com/dalemusser/libraryhub/internal/app/store/books"
	loginstore "github.com/dalemusser/libraryhub/internal/app/store/logins"
	metricsstore "github.com/dalemusser/libraryhub/internal/app/store/metrics"
	"github.com/dalemusser/libraryhub/internal/app/system/indexes"
	"github.com/dalemusser/libraryhub/internal/app/system/liberr"
	"github.com/dalemusser/libraryhub/internal/app/system/timeouts"
	"github.com/dalemusser/libraryhub/internal/app/system/validators"
	"github.com/dalemusser/libraryhub/internal/app/system/workers"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newSchemaCmd(run runWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Install collection validators and indexes",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, e env, _ []string) error {
			ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
			defer cancel()

			if err := validators.EnsureAll(ctx, e.db, e.log); err != nil {
				return fmt.Errorf("ensure validators: %w", err)
			}
			if err := indexes.EnsureAll(ctx, e.db, e.log); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			fmt.Fprintf(e.out, "schema up to date in %s\n", e.db.Name())
			return nil
		}),
	}
}

func newStatsCmd(run runWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print book, borrow and user totals as JSON",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, e env, _ []string) error {
			ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
			defer cancel()

			counts, err := metricsstore.Count(ctx, e.db)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(e.out)
			enc.SetIndent("", "  ")
			return enc.Encode(counts)
		}),
	}
}

func newPruneLoginsCmd(run runWrapper) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune-logins",
		Short: "Delete login records older than --older-than",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, e env, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
			defer cancel()

			w := workers.NewLoginCleanup(loginstore.New(e.db), e.log, time.Hour, olderThan)
			n, err := w.PruneContext(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "pruned %d login records\n", n)
			return nil
		}),
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "retention window")
	return cmd
}

// importResult summarizes an import-books run.
type importResult struct {
	Imported int           `json:"imported"`
	Failed   []importError `json:"failed,omitempty"`
}

type importError struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func newImportBooksCmd(run runWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "import-books FILE",
		Short: "Create books from a JSON array of {name, authorName, category, rating, photo}",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, e env, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var inputs []catalog.BookInput
			if err := json.NewDecoder(f).Decode(&inputs); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			res := importBooks(ctx, catalog.New(bookstore.New(e.db), e.log), inputs)

			enc := json.NewEncoder(e.out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d of %d books failed", len(res.Failed), len(inputs))
			}
			return nil
		}),
	}
}

// importBooks creates each input through the catalog so imported books get
// the same validation and cleaning as API writes. It keeps going past
// failures.
func importBooks(ctx context.Context, svc *catalog.Service, inputs []catalog.BookInput) importResult {
	var res importResult
	for i, in := range inputs {
		if _, err := svc.Create(ctx, in); err != nil {
			res.Failed = append(res.Failed, importError{
				Index:   i,
				Name:    in.Name,
				Message: liberr.Message(err),
			})
			continue
		}
		res.Imported++
	}
	return res
}
