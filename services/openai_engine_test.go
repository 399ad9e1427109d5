package services

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONResponse(t *testing.T) {
	assert.Equal(t, `{"intent":"CONFIRM"}`, cleanJSONResponse("```json\n{\"intent\":\"CONFIRM\"}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONResponse("  {\"a\":1}  "))
}

func TestParseIntentReply(t *testing.T) {
	reply, err := parseIntentReply("```json\n" + `{
		"intent": "order_item",
		"confidence": 0.92,
		"entities": {
			"items": [{"name": "fried rice", "quantity": 2, "modifications": ["no egg"]}],
			"language": "es"
		}
	}` + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "order_item", reply.Intent)
	assert.Equal(t, 0.92, reply.Confidence)
	require.Len(t, reply.Entities.Items, 1)
	assert.Equal(t, 2, reply.Entities.Items[0].Quantity)
	assert.Equal(t, []string{"no egg"}, reply.Entities.Items[0].Modifications)
	assert.Equal(t, "es", reply.Entities.Language)

	_, err = parseIntentReply("I think the customer wants rice")
	assert.Error(t, err)
}

func TestSegmentConfidence(t *testing.T) {
	var resp openai.AudioResponse
	require.NoError(t, json.Unmarshal([]byte(`{"text":"fried rice","segments":[{"avg_logprob":-0.1},{"avg_logprob":-0.3}]}`), &resp))
	assert.InDelta(t, math.Exp(-0.2), segmentConfidence(resp), 1e-9)

	assert.Equal(t, 1.0, segmentConfidence(openai.AudioResponse{Text: "hello"}))
	assert.Equal(t, 0.0, segmentConfidence(openai.AudioResponse{Text: "  "}))
}
