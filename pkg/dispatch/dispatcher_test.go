package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/apigear-io/sioprobe/pkg/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport delivers events the way the socket client does: named
// handlers only for registered names, the catch-all for everything.
type fakeTransport struct {
	handlers map[string][]func([]json.RawMessage) error
	any      []func([]json.RawMessage) error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: map[string][]func([]json.RawMessage) error{}}
}

func (f *fakeTransport) On(event string, fn func(args []json.RawMessage) error) {
	f.handlers[event] = append(f.handlers[event], fn)
}

func (f *fakeTransport) OnAny(fn func(args []json.RawMessage) error) {
	f.any = append(f.any, fn)
}

func (f *fakeTransport) connect() error {
	for _, h := range f.handlers[EventConnect] {
		if err := h(nil); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTransport) deliver(t *testing.T, name string, args ...any) error {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		data, err := json.Marshal(a)
		require.NoError(t, err)
		raw = append(raw, data)
	}
	for _, h := range f.handlers[name] {
		if err := h(raw); err != nil {
			return err
		}
	}
	if len(f.any) > 0 {
		nameJSON, err := json.Marshal(name)
		require.NoError(t, err)
		withName := append([]json.RawMessage{nameJSON}, raw...)
		for _, h := range f.any {
			if err := h(withName); err != nil {
				return err
			}
		}
	}
	return nil
}

func lines(buf *bytes.Buffer) []string {
	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestDispatcher_ExplicitMode(t *testing.T) {
	var buf bytes.Buffer
	tr := newFakeTransport()
	d := New([]string{"foo"}, &buf)
	d.Register(tr)

	require.NoError(t, tr.connect())
	require.NoError(t, d.Subscribe(subscription.Subscription{EventName: "bar", Params: json.RawMessage(`{"x":1}`)}))
	require.NoError(t, tr.deliver(t, "foo", 1, 2))
	require.NoError(t, tr.deliver(t, "baz", "ignored"))
	require.NoError(t, tr.deliver(t, "foo", 1, 2))

	assert.Equal(t, []string{
		"EVENT connect []",
		`SUBSCRIBE bar {"x":1}`,
		"EVENT foo [1,2]",
		"EVENT foo [1,2]",
	}, lines(&buf))
	assert.Empty(t, d.Seen())
}

func TestDispatcher_WildcardMode(t *testing.T) {
	var buf bytes.Buffer
	tr := newFakeTransport()
	d := New([]string{"foo"}, &buf)
	d.RegisterWildcard(tr)

	require.NoError(t, tr.deliver(t, "qux", 1))
	require.NoError(t, tr.deliver(t, "qux", 2))
	require.NoError(t, tr.deliver(t, "foo", map[string]int{"a": 1}))

	assert.Equal(t, []string{
		"UNTRACKED EVENT qux",
		`EVENT foo [{"a":1}]`,
	}, lines(&buf))
}

func TestDispatcher_WildcardNoticeOncePerName(t *testing.T) {
	var buf bytes.Buffer
	tr := newFakeTransport()
	d := New(nil, &buf)
	d.RegisterWildcard(tr)

	for i := 0; i < 50; i++ {
		require.NoError(t, tr.deliver(t, "a", i))
		require.NoError(t, tr.deliver(t, "b"))
	}

	assert.Equal(t, []string{"UNTRACKED EVENT a", "UNTRACKED EVENT b"}, lines(&buf))
	assert.Equal(t, []string{"a", "b"}, d.Seen())
}

func TestDispatcher_WildcardTrackedNeverDeduplicated(t *testing.T) {
	var buf bytes.Buffer
	tr := newFakeTransport()
	d := New([]string{"foo"}, &buf)
	d.RegisterWildcard(tr)

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.deliver(t, "foo"))
	}

	assert.Equal(t, []string{"EVENT foo []", "EVENT foo []", "EVENT foo []"}, lines(&buf))
}

func TestDispatcher_ConnectAlwaysPrinted(t *testing.T) {
	for _, wildcard := range []bool{false, true} {
		var buf bytes.Buffer
		tr := newFakeTransport()
		d := New(nil, &buf)
		if wildcard {
			d.RegisterWildcard(tr)
		} else {
			d.Register(tr)
		}
		require.NoError(t, tr.connect())
		assert.Equal(t, []string{"EVENT connect []"}, lines(&buf))
	}
}

func TestDispatcher_SubscribeWithoutParams(t *testing.T) {
	var buf bytes.Buffer
	d := New(nil, &buf)
	require.NoError(t, d.Subscribe(subscription.Subscription{EventName: "ping"}))
	assert.Equal(t, "SUBSCRIBE ping null\n", buf.String())
}

func TestDispatcher_SerializationFailureIsReturned(t *testing.T) {
	var buf bytes.Buffer
	d := New([]string{"foo"}, &buf)

	err := d.HandleEvent("foo", []json.RawMessage{json.RawMessage("{broken")})
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestDispatcher_WildcardRejectsBadName(t *testing.T) {
	d := New(nil, &bytes.Buffer{})
	assert.Error(t, d.HandleAny(nil))
	assert.Error(t, d.HandleAny([]json.RawMessage{json.RawMessage("42")}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("stdout closed")
}

func TestDispatcher_WriteFailureIsReturned(t *testing.T) {
	d := New(nil, failingWriter{})
	assert.EqualError(t, d.HandleEvent("connect", nil), "stdout closed")
}
