package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/internal/cmd/table"
)

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"table", "JSON", "yaml", ""} {
		_, err := ParseFormat(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	raw := map[string]int{"inserted": 2}
	tab := table.Data{Headers: []string{"State", "Count"}, Rows: [][]string{{"Inserted", "2"}}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", raw, tab))
	assert.JSONEq(t, `{"inserted": 2}`, buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, "yaml", raw, tab))
	assert.Equal(t, "inserted: 2\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, "table", raw, tab))
	assert.Contains(t, buf.String(), "Inserted")
}

func TestWriteMarkdown(t *testing.T) {
	tab := table.Data{Headers: []string{"State", "Count"}, Rows: [][]string{{"Inserted", "2"}}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "markdown", nil, tab))
	out := buf.String()
	assert.Contains(t, out, "| State")
	assert.Contains(t, out, "Inserted")
	assert.Contains(t, out, "---")

	f, err := ParseFormat("Markdown")
	require.NoError(t, err)
	assert.True(t, f.Tabular())
	assert.False(t, FormatJSON.Tabular())
}
