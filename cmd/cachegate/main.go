package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hryang/cachegate/pkg/config"
	"github.com/hryang/cachegate/pkg/datastore"
	"github.com/hryang/cachegate/pkg/gateway"
	"github.com/hryang/cachegate/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	v, err := config.NewViper()
	if err != nil {
		panic(err)
	}

	cmd := &cobra.Command{
		Use:          "cachegate",
		Short:        "HTTP front-end for a fixed-capacity key-value cache",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadDotEnv(envFile); err != nil {
				return err
			}
			c, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), c)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file merged into the environment")
	flags.String("addr", "0.0.0.0:3000", "the listen address")
	flags.Int("capacity", gateway.DefaultCapacity, "the maximum number of keys")
	flags.String("store-type", string(datastore.Redis), "the backend store: redis, sqlite or memory")
	flags.String("store-url", "", "the redis connection url (or REDIS_CONNECTION_URL)")
	flags.String("sqlite-file", "", "the sqlite file")
	flags.Bool("debug", false, "enable debug logging")

	bindFlags(v, cmd, map[string]string{
		"addr":              "addr",
		"capacity":          "capacity",
		"store.type":        "store-type",
		"store.url":         "store-url",
		"store.sqlite_file": "sqlite-file",
		"debug":             "debug",
	})

	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore builds the shared datastore. Tests replace it.
var openStore = func(c *datastore.Config) (datastore.Store, error) {
	df := datastore.DatastoreFactory{}
	return df.New(c)
}

func serve(ctx context.Context, c *config.Config) error {
	logger, err := newLogger(c.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ds, err := openStore(&c.Store)
	if err != nil {
		return err
	}
	defer ds.Close()

	// Refuse to start when the store cannot be reached.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = ds.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Error("datastore is unreachable", zap.String("type", string(c.Store.Type)), zap.Error(err))
		return fmt.Errorf("ping %s datastore: %w", c.Store.Type, err)
	}

	gw, err := gateway.New(ds, c.Capacity, logger)
	if err != nil {
		return err
	}
	s := server.NewServer(gw, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- s.Start(c.Addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
