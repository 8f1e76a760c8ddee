package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jacentio/arkdb/internal/dynamofake"
	"github.com/jacentio/arkdb/store"
)

func TestConn_CreateAndDropCollection(t *testing.T) {
	ctx := context.Background()
	client := dynamofake.New()
	conn := store.NewConn(client, store.DefaultConfig())

	d, err := conn.CreateCollection(ctx, "things")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if d.Table() != "things" {
		t.Errorf("expected table things, got %q", d.Table())
	}
	if _, err := d.Set(ctx, "a", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Creating again is not an error and keeps the data.
	again, err := conn.CreateCollection(ctx, "things")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if got, _ := again.Get(ctx, "a"); got != float64(1) {
		t.Errorf("expected existing data to survive, got %v", got)
	}

	if err := conn.DropCollection(ctx, "things"); err != nil {
		t.Fatalf("DropCollection: %v", err)
	}
	if client.Items("things") != nil {
		t.Error("expected table to be deleted")
	}
	if err := conn.DropCollection(ctx, "things"); err != nil {
		t.Errorf("expected dropping a missing table to succeed, got %v", err)
	}
}

func TestConn_DefaultCollection(t *testing.T) {
	ctx := context.Background()
	cfg := store.DefaultConfig()
	cfg.Collection = "configured"
	conn := store.NewConn(dynamofake.New(), cfg)

	d, err := conn.CreateCollection(ctx, "")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if d.Table() != "configured" {
		t.Errorf("expected configured, got %q", d.Table())
	}
	if conn.Collection("").Table() != "configured" {
		t.Errorf("expected Collection(\"\") to use the configured table")
	}
}

func TestConn_UptimeAndClose(t *testing.T) {
	ctx := context.Background()
	conn := store.NewConn(dynamofake.New(), store.DefaultConfig())

	time.Sleep(2 * time.Millisecond)
	if conn.Uptime() <= 0 {
		t.Errorf("expected positive uptime, got %v", conn.Uptime())
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("expected second Close to succeed, got %v", err)
	}
	if conn.Uptime() != 0 {
		t.Errorf("expected zero uptime after close, got %v", conn.Uptime())
	}
	if _, err := conn.CreateCollection(ctx, "x"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := conn.DropCollection(ctx, "x"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
