package net

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// GenerateOptions control synthetic feed events.
type GenerateOptions struct {
	Count int
	// Seed makes the output reproducible; zero picks a random seed.
	Seed uint64
	// Names are the event names cycled through, "sample" when empty.
	Names []string
}

type sampleEvent struct {
	Seq       int     `json:"seq"`
	ID        string  `json:"id"`
	Timestamp string  `json:"timestamp"`
	Source    string  `json:"source"`
	Host      string  `json:"host"`
	Value     float64 `json:"value"`
	OK        bool    `json:"ok"`
	Message   string  `json:"message"`
}

// GenerateFeed synthesizes events shaped ["name", {...}] with fake payloads.
func GenerateFeed(opts GenerateOptions) ([]json.RawMessage, error) {
	if opts.Count <= 0 {
		return nil, errors.New("generate: count must be positive")
	}
	names := opts.Names
	if len(names) == 0 {
		names = []string{"sample"}
	}
	faker := gofakeit.New(opts.Seed)

	events := make([]json.RawMessage, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		payload := sampleEvent{
			Seq:       i + 1,
			ID:        faker.UUID(),
			Timestamp: faker.Date().UTC().Format(time.RFC3339),
			Source:    faker.IPv4Address(),
			Host:      faker.DomainName(),
			Value:     faker.Float64Range(0, 100),
			OK:        faker.Bool(),
			Message:   faker.Sentence(6),
		}
		data, err := json.Marshal([]any{names[i%len(names)], payload})
		if err != nil {
			return nil, fmt.Errorf("generate: event %d: %w", i+1, err)
		}
		events = append(events, data)
	}
	return events, nil
}
