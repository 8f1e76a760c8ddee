package store

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arkdb/tree"
)

// Attribute names of a document item.
const (
	// AttrKey is the partition key: a path's first segment.
	AttrKey = "Key"

	// AttrValue holds everything addressed by the rest of the path.
	AttrValue = "Value"
)

// DocumentKey returns the primary key of the document for key.
func DocumentKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrKey: &types.AttributeValueMemberS{Value: key},
	}
}

// DocumentKeyOf extracts the Key attribute from an item.
func DocumentKeyOf(item map[string]types.AttributeValue) (string, bool) {
	v, ok := item[AttrKey].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return v.Value, true
}

// MarshalDocument builds the item {Key: key, Value: value}.
func MarshalDocument(key string, value any) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.Marshal(value)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{
		AttrKey:   &types.AttributeValueMemberS{Value: key},
		AttrValue: av,
	}, nil
}

// UnmarshalValue decodes the Value attribute of an item into a tree value.
// Numbers decode as float64, sets as arrays and binary as base64 strings.
// A missing Value decodes as nil.
func UnmarshalValue(item map[string]types.AttributeValue) (any, error) {
	av, ok := item[AttrValue]
	if !ok {
		return nil, nil
	}
	var v any
	if err := attributevalue.Unmarshal(av, &v); err != nil {
		return nil, err
	}
	return tree.Normalize(v)
}
