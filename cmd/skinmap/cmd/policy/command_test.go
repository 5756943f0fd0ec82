package policy

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/internal/cmd/application"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/safety"
)

func execute(t *testing.T, app *application.Mock, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), err
}

func TestShowRoundTrips(t *testing.T) {
	out, err := execute(t, &application.Mock{}, "show")
	require.NoError(t, err)

	p, err := safety.ParsePolicy([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, safety.DefaultPolicy(), p)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("top_window: 8\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("top_window: 0\n"), 0o600))

	out, err := execute(t, &application.Mock{}, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	_, err = execute(t, &application.Mock{}, "validate", bad)
	assert.True(t, errors.IsValidationError(err))
}
