package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/model"
)

func TestFlexIntDecoding(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{`{"unread_count": 3}`, 3},
		{`{"unread_count": "4"}`, 4},
		{`{"unread_count": ""}`, 0},
		{`{"unread_count": null}`, 0},
		{`{}`, 0},
		{`{"unread_count": 2.0}`, 2},
	}
	for _, test := range tests {
		var conv model.Conversation
		require.NoError(t, json.Unmarshal([]byte(test.input), &conv), test.input)
		require.Equal(t, test.expected, int(conv.UnreadCount), test.input)
	}

	var conv model.Conversation
	require.Error(t, json.Unmarshal([]byte(`{"unread_count": "many"}`), &conv))
}

func TestMissionUnviewedRequiresExplicitFalse(t *testing.T) {
	var missions []model.Mission
	payload := `[
		{"id": 1, "viewed_by_contractor": false},
		{"id": 2, "viewed_by_contractor": true},
		{"id": 3}
	]`
	require.NoError(t, json.Unmarshal([]byte(payload), &missions))

	require.True(t, missions[0].Unviewed())
	require.False(t, missions[1].Unviewed())
	require.False(t, missions[2].Unviewed())
}
