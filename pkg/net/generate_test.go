package net

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFeed(t *testing.T) {
	events, err := GenerateFeed(GenerateOptions{Count: 5, Seed: 42, Names: []string{"a", "b"}})
	require.NoError(t, err)
	require.Len(t, events, 5)

	var names []string
	for _, ev := range events {
		name, args, err := SplitEvent(ev)
		require.NoError(t, err)
		require.Len(t, args, 1)
		var payload sampleEvent
		require.NoError(t, json.Unmarshal(args[0], &payload))
		assert.NotEmpty(t, payload.ID)
		names = append(names, name)
	}
	assert.Equal(t, []string{"a", "b", "a", "b", "a"}, names)

	again, err := GenerateFeed(GenerateOptions{Count: 5, Seed: 42, Names: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, events, again)
}

func TestGenerateFeed_Defaults(t *testing.T) {
	events, err := GenerateFeed(GenerateOptions{Count: 1})
	require.NoError(t, err)
	name, _, err := SplitEvent(events[0])
	require.NoError(t, err)
	assert.Equal(t, "sample", name)

	_, err = GenerateFeed(GenerateOptions{})
	assert.Error(t, err)
}
