// Package opscli implements libraryctl, the operator command line for a
// LibraryHub database: schema reconciliation, totals, login history pruning
// and bulk book import.
package opscli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dalemusser/libraryhub/internal/app/system/timeouts"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Connector opens the database a command works on. The returned close
// function is called once the command finishes.
type Connector func(ctx context.Context, uri, database string) (*mongo.Database, func(context.Context) error, error)

// MongoConnector dials uri and pings the primary.
func MongoConnector(ctx context.Context, uri, database string) (*mongo.Database, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("libraryctl"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client.Database(database), client.Disconnect, nil
}

type globalFlags struct {
	mongoURI string
	database string
	verbose  bool
}

// env is what every subcommand runs against.
type env struct {
	db  *mongo.Database
	log *zap.Logger
	out io.Writer
}

// NewRootCmd builds the libraryctl command tree.
func NewRootCmd(connect Connector) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Operate a LibraryHub database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.mongoURI, "mongo-uri", envOr("LIBRARYHUB_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	root.PersistentFlags().StringVar(&flags.database, "database", envOr("LIBRARYHUB_MONGO_DATABASE", "libraryManagement"), "MongoDB database name")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log progress to stderr")

	// run wraps a subcommand body with connect and disconnect.
	run := func(fn func(ctx context.Context, e env, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			logger := zap.NewNop()
			if flags.verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = l
				defer func() { _ = logger.Sync() }()
			}

			db, closeFn, err := connect(ctx, flags.mongoURI, flags.database)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := closeFn(closeCtx); err != nil {
					logger.Warn("disconnect failed", zap.Error(err))
				}
			}()

			return fn(ctx, env{db: db, log: logger, out: cmd.OutOrStdout()}, args)
		}
	}

	root.AddCommand(
		newSchemaCmd(run),
		newStatsCmd(run),
		newPruneLoginsCmd(run),
		newImportBooksCmd(run),
	)
	return root
}

type runWrapper func(fn func(ctx context.Context, e env, args []string) error) func(*cobra.Command, []string) error

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
