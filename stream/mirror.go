// Package stream provides DynamoDB Streams handlers that replay document
// changes onto another store.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arkdb/store"
)

// Stream event names.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// Handler mirrors a document table into a replica store.
type Handler struct {
	replica store.Store
	logger  *slog.Logger
}

// NewHandler creates a new stream handler writing to replica.
func NewHandler(replica store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		replica: replica,
		logger:  logger,
	}
}

// HandleMirror applies every record of a DynamoDB stream event to the replica,
// in order. The table's stream must carry new images.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleMirror(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord applies a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	key := getStringAttr(record.Change.Keys, store.AttrKey)
	if key == "" {
		key = getStringAttr(record.Change.NewImage, store.AttrKey)
	}
	if key == "" {
		h.logger.Warn("skipping record without a document key",
			"eventID", record.EventID,
			"eventName", record.EventName,
		)
		return nil
	}

	switch record.EventName {
	case EventInsert, EventModify:
		if len(record.Change.NewImage) == 0 {
			h.logger.Warn("skipping record without new image",
				"eventID", record.EventID,
				"key", key,
				"streamViewType", record.Change.StreamViewType,
			)
			return nil
		}
		value, err := store.UnmarshalValue(ConvertStreamImage(record.Change.NewImage))
		if err != nil {
			return fmt.Errorf("decode document %q: %w", key, err)
		}
		if value == nil {
			// A null document cannot be stored; drop any stale copy instead.
			if _, err := h.replica.Delete(ctx, key); err != nil {
				return fmt.Errorf("mirror delete %q: %w", key, err)
			}
			h.logger.Warn("removed document with null value", "key", key)
			return nil
		}
		if _, err := h.replica.Set(ctx, key, value); err != nil {
			return fmt.Errorf("mirror set %q: %w", key, err)
		}
		h.logger.Debug("mirrored document", "key", key, "event", record.EventName)

	case EventRemove:
		if _, err := h.replica.Delete(ctx, key); err != nil {
			return fmt.Errorf("mirror delete %q: %w", key, err)
		}
		h.logger.Debug("mirrored removal", "key", key)

	default:
		h.logger.Warn("skipping unknown event", "eventName", record.EventName, "key", key)
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// ConvertStreamImage converts a DynamoDB stream image to an SDK item so it
// can be decoded with store.UnmarshalValue and store.DocumentKeyOf.
func ConvertStreamImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		if av := ConvertStreamValue(v); av != nil {
			result[k] = av
		}
	}
	return result
}

// ConvertStreamValue converts one stream attribute, recursing into lists and
// maps. It returns nil for an attribute with no data type.
func ConvertStreamValue(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, 0, len(list))
		for _, item := range list {
			if av := ConvertStreamValue(item); av != nil {
				out = append(out, av)
			}
		}
		return &types.AttributeValueMemberL{Value: out}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertStreamImage(v.Map())}
	}
	return nil
}
