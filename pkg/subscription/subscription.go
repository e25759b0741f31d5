package subscription

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Subscription is a decoded subscribe directive: the event to emit and its
// optional JSON parameters.
type Subscription struct {
	EventName string
	// Params is nil when the directive carried no parameters.
	Params json.RawMessage
}

// MalformedError reports a subscribe directive whose parameters are not
// valid JSON.
type MalformedError struct {
	Raw string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed subscription %q: %v", e.Raw, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Encode parses "<name>" or "<name> <json>". The first space is the
// delimiter, so event names cannot contain spaces.
func Encode(raw string) (Subscription, error) {
	name, params, found := strings.Cut(raw, " ")
	if !found {
		return Subscription{EventName: raw}, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(params)); err != nil {
		return Subscription{}, &MalformedError{Raw: raw, Err: err}
	}
	return Subscription{EventName: name, Params: json.RawMessage(buf.Bytes())}, nil
}

// EncodeAll decodes directives in order and stops at the first malformed
// one.
func EncodeAll(raws []string) ([]Subscription, error) {
	out := make([]Subscription, 0, len(raws))
	for _, raw := range raws {
		s, err := Encode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ParamsJSON renders the parameters, or null when there are none.
func (s Subscription) ParamsJSON() string {
	if s.Params == nil {
		return "null"
	}
	return string(s.Params)
}

// Args returns the emit arguments. A directive without parameters still
// emits a single null argument.
func (s Subscription) Args() []any {
	if s.Params == nil {
		return []any{nil}
	}
	return []any{s.Params}
}
