// Command arkdb-mirror is an AWS Lambda function that replays a document
// table's DynamoDB stream onto a replica store named by ARKDB_REPLICA.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/arkdb/store"
	"github.com/jacentio/arkdb/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	handler, err := newHandler(context.Background(), os.Getenv("ARKDB_REPLICA"), logger)
	if err != nil {
		logger.Error("failed to open replica", "error", err)
		os.Exit(1)
	}
	lambda.Start(handler.HandleMirror)
}

func newHandler(ctx context.Context, uri string, logger *slog.Logger) (*stream.Handler, error) {
	if uri == "" {
		return nil, fmt.Errorf("ARKDB_REPLICA is not set")
	}
	cfg := store.DefaultConfig()
	cfg.Logger = logger
	replica, err := store.Open(ctx, uri, cfg)
	if err != nil {
		return nil, err
	}
	return stream.NewHandler(replica, logger), nil
}
