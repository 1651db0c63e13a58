package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStringListDecodesLegacyCommaString(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"tags": "Summer, sale,summer ,"})
	require.NoError(t, err)

	var doc struct {
		Tags StringList `bson:"tags"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, StringList{"summer", "sale"}, doc.Tags)
}

func TestStringListDecodesArray(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"tags": bson.A{"Cotton", "cotton", "Shirt"}})
	require.NoError(t, err)

	var doc struct {
		Tags StringList `bson:"tags"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, StringList{"cotton", "shirt"}, doc.Tags)
}

func TestSameVariant(t *testing.T) {
	assert.True(t, SameVariant(nil, map[string]string{}))
	assert.True(t, SameVariant(map[string]string{"size": "M"}, map[string]string{"size": "M"}))
	assert.False(t, SameVariant(map[string]string{"size": "M"}, map[string]string{"size": "L"}))
	assert.False(t, SameVariant(map[string]string{"size": "M"}, nil))
}
