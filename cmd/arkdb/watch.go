package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jacentio/arkdb/store"
	"github.com/jacentio/arkdb/tree"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <key>",
		Short: "Print the value at key each time a file store changes",
		Long: `Watches the JSON file behind a file store and prints the value at key
whenever it changes on disk. Only file stores can be watched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				local, ok := s.(*store.Local)
				if !ok {
					return fmt.Errorf("watch needs a file store, got %T", s)
				}
				out := cmd.OutOrStdout()
				return watchKey(ctx, local, args[0], a.logger, func(v any) error {
					return printJSON(out, v, false)
				})
			})
		},
	}
}

// watchKey reloads local whenever its file is replaced or written and
// calls onChange with the value at key when it differs from the last one
// seen. The current value is reported first. It returns when ctx is done.
func watchKey(ctx context.Context, local *store.Local, key string, logger *slog.Logger, onChange func(v any) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	// The file is replaced by rename on every flush, so watch its directory.
	if err := w.Add(filepath.Dir(local.Path())); err != nil {
		return err
	}

	last, err := local.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := onChange(last); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Name != local.Path() || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if err := local.Reload(ctx); err != nil {
				if errors.Is(err, store.ErrMalformedMedium) {
					logger.WarnContext(ctx, "Ignoring unreadable store file", "path", local.Path(), "err", err)
					continue
				}
				return err
			}
			v, err := local.Get(ctx, key)
			if err != nil {
				return err
			}
			if tree.Equal(v, last) {
				continue
			}
			last = v
			if err := onChange(v); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "Error watching store file", "err", err)
		}
	}
}
