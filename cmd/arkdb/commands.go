package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jacentio/arkdb/store"
	"github.com/jacentio/arkdb/tree"
)

// parseValue reads a command-line value as JSON, falling back to the raw string.
func parseValue(s string) any {
	v, err := tree.Decode([]byte(s))
	if err != nil || v == nil {
		return s
	}
	return v
}

// printJSON writes v as one JSON document followed by a newline.
func printJSON(w io.Writer, v any, pretty bool) error {
	b, err := tree.Encode(v, pretty)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Aliases: []string{"fetch"},
		Short:   "Print the value at key, or null",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				v, err := s.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v, a.pretty)
			})
		},
	}
}

func (a *app) hasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "has <key>",
		Short: "Print whether key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				ok, err := s.Has(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)
				return err
			})
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value and print the updated top-level entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				echo, err := s.Set(ctx, args[0], parseValue(args[1]), a.writeOptions()...)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), echo, a.pretty)
			})
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Remove key and print whether anything was removed",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				removed, err := s.Delete(ctx, args[0], a.writeOptions()...)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), removed)
				return err
			})
		},
	}
}

// arithCmd builds add and subtract.
func (a *app) arithCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <key> <number>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: %q", store.ErrInvalidValue, args[1])
			}
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				op := s.Add
				if name == "subtract" {
					op = s.Subtract
				}
				v, err := op(ctx, args[0], n, a.writeOptions()...)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v, false)
			})
		},
	}
}

// arrayCmd builds push and pull.
func (a *app) arrayCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <key> <element>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				op := s.Push
				if name == "pull" {
					op = s.Pull
				}
				arr, err := op(ctx, args[0], parseValue(args[1]), a.writeOptions()...)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), arr, a.pretty)
			})
		},
	}
}

func (a *app) allCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Print every top-level key and value as one object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				entries, err := s.All(ctx)
				if err != nil {
					return err
				}
				out := make(map[string]any, len(entries))
				for _, e := range entries {
					out[e.Key] = e.Value
				}
				return printJSON(cmd.OutOrStdout(), out, a.pretty)
			})
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove everything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				return s.Clear(ctx)
			})
		},
	}
}

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Measure a write, read and delete round trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				r, err := store.Ping(ctx, s)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "read %s write %s average %s\n", r.Read, r.Write, r.Average)
				return err
			})
		},
	}
}
