package helper

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNDJSON_SkipsBlankAndComments(t *testing.T) {
	input := "# feed\n[\"a\",1]\n\n  [\"b\"]  \n"
	events, err := ReadNDJSON[json.RawMessage](strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, `["a",1]`, string(events[0]))
	assert.Equal(t, `["b"]`, string(events[1]))
}

func TestReadNDJSON_ReportsLine(t *testing.T) {
	_, err := ReadNDJSON[[]any](strings.NewReader("[1]\n{oops\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestScanNDJSON_StopsOnEOF(t *testing.T) {
	var seen []string
	err := ScanNDJSON(strings.NewReader("1\n2\n3\n"), func(_ int, line []byte) error {
		seen = append(seen, string(line))
		if len(seen) == 2 {
			return io.EOF
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, seen)
}

func TestReadNDJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("[\"x\"]\n[\"y\",{\"k\":true}]\n"), 0o600))

	events, err := ReadNDJSONFile[[]any](path)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	_, err = ReadNDJSONFile[[]any](filepath.Join(t.TempDir(), "missing.ndjson"))
	assert.Error(t, err)
}
