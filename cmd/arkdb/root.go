package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/arkdb/store"
)

// defaultDB is used when neither --db nor the profile names a store.
const defaultDB = "arkdb.json"

// profile is the YAML file read with --config.
type profile struct {
	DB         string `yaml:"db"`
	Collection string `yaml:"collection"`
	Slot       string `yaml:"slot"`
	Pretty     bool   `yaml:"pretty"`
	StrictPull bool   `yaml:"strict_pull"`
}

// loadProfile reads a profile. An empty path is an empty profile.
func loadProfile(path string) (profile, error) {
	var p profile
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, nil
}

// app holds the persistent flags shared by every subcommand.
type app struct {
	db         string
	configPath string
	pretty     bool
	noWrite    bool
	verbose    bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "arkdb",
		Short: "Path-addressable key-value store",
		Long: `arkdb reads and writes a JSON tree addressed by dotted keys.

The store is chosen with --db:
  data.json                          JSON file (default arkdb.json)
  dynamodb://eu-west-1?collection=t  DynamoDB table
  webstorage:///path/ls.db?slot=s    SQLite-backed storage slot
  memory:                            in-process, for testing

Values are parsed as JSON, falling back to a plain string:
  arkdb set user.name ada
  arkdb set user.tags '["a","b"]'
  arkdb add stats.hits 1`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.db, "db", "", "Store URI (default "+defaultDB+")")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML profile file")
	root.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "Indent the written JSON")
	root.PersistentFlags().BoolVar(&a.noWrite, "no-write", false, "Skip flushing file and slot stores")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.getCmd(),
		a.hasCmd(),
		a.setCmd(),
		a.deleteCmd(),
		a.arithCmd("add", "Add a number to the value at key"),
		a.arithCmd("subtract", "Subtract a number from the value at key"),
		a.arrayCmd("push", "Append an element to the array at key"),
		a.arrayCmd("pull", "Remove every copy of an element from the array at key"),
		a.allCmd(),
		a.clearCmd(),
		a.pingCmd(),
		a.watchCmd(),
	)
	return root
}

// newLogger builds a tint handler on stderr, colored only on a terminal.
func (a *app) newLogger() *slog.Logger {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

// config resolves the store configuration from the profile and flags.
func (a *app) config(cmd *cobra.Command) (string, store.Config, error) {
	p, err := loadProfile(a.configPath)
	if err != nil {
		return "", store.Config{}, err
	}
	cfg := store.DefaultConfig()
	a.logger = a.newLogger()
	cfg.Logger = a.logger
	if p.Collection != "" {
		cfg.Collection = p.Collection
	}
	if p.Slot != "" {
		cfg.Slot = p.Slot
	}
	cfg.Pretty = p.Pretty
	if cmd.Flags().Changed("pretty") {
		cfg.Pretty = a.pretty
	}
	a.pretty = cfg.Pretty
	cfg.StrictPull = p.StrictPull

	uri := a.db
	if uri == "" {
		uri = p.DB
	}
	if uri == "" {
		uri = defaultDB
	}
	return uri, cfg, nil
}

// withStore opens the configured store, runs fn and closes the store.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, s store.Store) error) (err error) {
	uri, cfg, err := a.config(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := store.Open(ctx, uri, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if c, ok := s.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
	}()
	cfg.Logger.Debug("opened store", "db", uri)
	return fn(ctx, s)
}

// writeOptions turns --no-write into per-call options.
func (a *app) writeOptions() []store.WriteOption {
	if a.noWrite {
		return []store.WriteOption{store.WithoutWrite()}
	}
	return nil
}
