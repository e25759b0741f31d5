package dispatch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/apigear-io/sioprobe/pkg/subscription"
)

// EventConnect is the lifecycle pseudo-event fired once the namespace
// handshake completes.
const EventConnect = "connect"

// Line tags.
const (
	TagEvent     = "EVENT"
	TagUntracked = "UNTRACKED EVENT"
	TagSubscribe = "SUBSCRIBE"
)

// Registrar attaches a handler to one named event.
type Registrar interface {
	On(event string, fn func(args []json.RawMessage) error)
}

// AnyRegistrar additionally attaches a catch-all handler whose first
// argument is the event name.
type AnyRegistrar interface {
	Registrar
	OnAny(fn func(args []json.RawMessage) error)
}

// Dispatcher decides what to print for each inbound event. One dispatcher
// serves one connection; its seen set lives as long as it does.
type Dispatcher struct {
	mu       sync.Mutex
	w        io.Writer
	listenTo []string
	tracked  map[string]struct{}
	seen     map[string]struct{}
	order    []string
}

// New creates a dispatcher tracking the given names. A nil writer means
// standard output.
func New(listenTo []string, w io.Writer) *Dispatcher {
	if w == nil {
		w = os.Stdout
	}
	d := &Dispatcher{
		w:        w,
		listenTo: listenTo,
		tracked:  make(map[string]struct{}, len(listenTo)),
		seen:     make(map[string]struct{}),
	}
	for _, name := range listenTo {
		d.tracked[name] = struct{}{}
	}
	return d
}

// Register wires explicit mode: connect plus one handler per listened name.
// The transport never delivers other names, so no filtering happens here.
func (d *Dispatcher) Register(r Registrar) {
	r.On(EventConnect, d.handlerFor(EventConnect))
	for _, name := range d.listenTo {
		r.On(name, d.handlerFor(name))
	}
}

// RegisterWildcard wires wildcard mode: connect plus a single catch-all.
func (d *Dispatcher) RegisterWildcard(r AnyRegistrar) {
	r.On(EventConnect, d.handlerFor(EventConnect))
	r.OnAny(d.HandleAny)
}

func (d *Dispatcher) handlerFor(name string) func(args []json.RawMessage) error {
	return func(args []json.RawMessage) error {
		return d.HandleEvent(name, args)
	}
}

// HandleEvent prints a tracked event.
func (d *Dispatcher) HandleEvent(name string, args []json.RawMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.printEvent(name, args)
}

// HandleAny handles one event delivered through the catch-all handler.
// args[0] carries the event name, the rest are the event's arguments.
func (d *Dispatcher) HandleAny(args []json.RawMessage) error {
	if len(args) == 0 {
		return fmt.Errorf("dispatch: wildcard event without a name")
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return fmt.Errorf("dispatch: wildcard event name: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tracked[name]; ok {
		return d.printEvent(name, args[1:])
	}
	if _, ok := d.seen[name]; ok {
		return nil
	}
	d.seen[name] = struct{}{}
	d.order = append(d.order, name)
	_, err := fmt.Fprintf(d.w, "%s %s\n", TagUntracked, name)
	return err
}

// Subscribe prints the line announcing an outbound subscription.
func (d *Dispatcher) Subscribe(s subscription.Subscription) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := fmt.Fprintf(d.w, "%s %s %s\n", TagSubscribe, s.EventName, s.ParamsJSON())
	return err
}

// Seen returns the untracked event names in first-seen order.
func (d *Dispatcher) Seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

func (d *Dispatcher) printEvent(name string, args []json.RawMessage) error {
	if args == nil {
		args = []json.RawMessage{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("dispatch: encode %q arguments: %w", name, err)
	}
	_, err = fmt.Fprintf(d.w, "%s %s %s\n", TagEvent, name, data)
	return err
}
