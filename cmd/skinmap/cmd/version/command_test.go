package version

import (
	"bytes"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap"
	"github.com/agentstation/skinmap/internal/cmd/application"
)

func TestVersionCommand(t *testing.T) {
	app := &application.Mock{
		VersionFunc: func() string { return "v1.2.3" },
		CommitFunc:  func() string { return "abc123" },
	}
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	var info Info
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "unknown", info.Date)
	assert.Equal(t, skinmap.Version, info.Engine)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestVersionTable(t *testing.T) {
	app := &application.Mock{OutputFormatFunc: func() string { return "table" }}
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "dev")
	assert.Contains(t, out.String(), skinmap.Version)
}
