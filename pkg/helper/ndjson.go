package helper

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// OnLineFunc is invoked for each non-blank NDJSON line. Returning io.EOF
// stops the scan gracefully.
type OnLineFunc func(lineNo int, line []byte) error

// ScanNDJSON streams the non-blank lines of r to fn. Lines starting with #
// are comments.
func ScanNDJSON(r io.Reader, fn OnLineFunc) error {
	if fn == nil {
		return errors.New("ndjson: callback cannot be nil")
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		dup := append([]byte(nil), line...)
		if err := fn(lineNo, dup); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
	return scanner.Err()
}

// ReadNDJSON reads all NDJSON entries from the reader into a slice.
func ReadNDJSON[T any](r io.Reader) ([]T, error) {
	var out []T
	err := ScanNDJSON(r, func(lineNo int, line []byte) error {
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			return fmt.Errorf("ndjson: line %d: %w", lineNo, err)
		}
		out = append(out, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadNDJSONFile reads all NDJSON entries from the file into a slice.
func ReadNDJSONFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return ReadNDJSON[T](f)
}
