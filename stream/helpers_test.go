package stream

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

// --- getStringAttr Tests ---

func TestGetStringAttr(t *testing.T) {
	tests := []struct {
		name     string
		image    map[string]events.DynamoDBAttributeValue
		expected string
	}{
		{"existing string", map[string]events.DynamoDBAttributeValue{"Key": events.NewStringAttribute("user")}, "user"},
		{"missing key", map[string]events.DynamoDBAttributeValue{"Other": events.NewStringAttribute("x")}, ""},
		{"empty image", map[string]events.DynamoDBAttributeValue{}, ""},
		{"nil image", nil, ""},
		{"empty string", map[string]events.DynamoDBAttributeValue{"Key": events.NewStringAttribute("")}, ""},
		{"unicode", map[string]events.DynamoDBAttributeValue{"Key": events.NewStringAttribute("日本語")}, "日本語"},
		{"number attribute", map[string]events.DynamoDBAttributeValue{"Key": events.NewNumberAttribute("1")}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getStringAttr(tt.image, "Key"); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// --- processRecord Tests ---

func TestProcessRecord_KeyFromNewImage(t *testing.T) {
	replica := &recordingStore{}
	h := NewHandler(replica, nil)

	rec := events.DynamoDBEventRecord{
		EventName: EventInsert,
		Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"Key":   events.NewStringAttribute("k"),
				"Value": events.NewStringAttribute("v"),
			},
		},
	}
	if err := h.processRecord(context.Background(), rec); err != nil {
		t.Fatalf("processRecord: %v", err)
	}
	if replica.setKey != "k" || replica.setValue != "v" {
		t.Errorf("expected Set(k, v), got Set(%q, %v)", replica.setKey, replica.setValue)
	}
}

func TestProcessRecord_RemoveUsesKeys(t *testing.T) {
	replica := &recordingStore{}
	h := NewHandler(replica, nil)

	rec := events.DynamoDBEventRecord{
		EventName: EventRemove,
		Change: events.DynamoDBStreamRecord{
			Keys: map[string]events.DynamoDBAttributeValue{"Key": events.NewStringAttribute("gone")},
		},
	}
	if err := h.processRecord(context.Background(), rec); err != nil {
		t.Fatalf("processRecord: %v", err)
	}
	if replica.deleteKey != "gone" {
		t.Errorf("expected Delete(gone), got %q", replica.deleteKey)
	}
}

// --- Benchmark Tests ---

func BenchmarkConvertStreamImage(b *testing.B) {
	image := map[string]events.DynamoDBAttributeValue{
		"Key": events.NewStringAttribute("user"),
		"Value": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"name": events.NewStringAttribute("ada"),
			"tags": events.NewListAttribute([]events.DynamoDBAttributeValue{
				events.NewStringAttribute("a"),
				events.NewNumberAttribute("1"),
			}),
		}),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ConvertStreamImage(image)
	}
}
