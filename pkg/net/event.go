package net

import (
	"encoding/json"
	"errors"
	"fmt"
)

const rootNamespace = "/"

// ErrMalformedEvent reports an event that is not a ["name", args...] array.
var ErrMalformedEvent = errors.New("socketio: malformed event")

// SplitEvent splits a JSON event array into its name and arguments.
func SplitEvent(data json.RawMessage) (string, []json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return "", nil, fmt.Errorf("%w: not an array: %v", ErrMalformedEvent, err)
	}
	if len(items) == 0 {
		return "", nil, fmt.Errorf("%w: no name", ErrMalformedEvent)
	}
	var name string
	if err := json.Unmarshal(items[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: name is not a string", ErrMalformedEvent)
	}
	return name, items[1:], nil
}
