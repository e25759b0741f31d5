package net

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEvent(t *testing.T) {
	name, args, err := SplitEvent(json.RawMessage(`["tick",{"n":1},"x"]`))
	require.NoError(t, err)
	assert.Equal(t, "tick", name)
	require.Len(t, args, 2)
	assert.JSONEq(t, `{"n":1}`, string(args[0]))
	assert.JSONEq(t, `"x"`, string(args[1]))

	name, args, err = SplitEvent(json.RawMessage(`["bare"]`))
	require.NoError(t, err)
	assert.Equal(t, "bare", name)
	assert.Empty(t, args)
}

func TestSplitEvent_Malformed(t *testing.T) {
	for _, data := range []string{`{"a":1}`, `[]`, `[1,2]`, `not json`} {
		_, _, err := SplitEvent(json.RawMessage(data))
		assert.ErrorIs(t, err, ErrMalformedEvent, data)
	}
}
