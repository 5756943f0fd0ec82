package cmdutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/pkg/errors"
)

func TestReadRecords(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("brand,name,ingredients\nCOSRX,Snail Mucin,\"Snail Secretion Filtrate, Betaine\"\n"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("brand,name,ingredients\nCeraVe,PM Lotion,\"Aqua, Glycerin\"\n"), 0o600))

	recs, err := ReadRecords([]string{a, b})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Source)
	assert.Equal(t, "b", recs[1].Source)

	_, err = ReadRecords([]string{filepath.Join(dir, "missing.csv")})
	assert.Error(t, err)
}

func TestCreateFile(t *testing.T) {
	var stdout bytes.Buffer
	w, err := CreateFile("-", &stdout)
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "x", stdout.String())

	path := filepath.Join(t.TempDir(), "out.csv")
	w, err = CreateFile(path, &stdout)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.FileExists(t, path)
}

func TestRefTypeOptions(t *testing.T) {
	opts, err := RefTypeOptions([]string{"merchant/source_ref_url"})
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	_, err = RefTypeOptions([]string{"merchant"})
	assert.True(t, errors.IsValidationError(err))
}

func TestRefTypesFlag(t *testing.T) {
	var refs RefTypes
	require.NoError(t, refs.Set("merchant/source_ref_url, harvester/candidate_id"))
	require.NoError(t, refs.Set("pivota/external_seed_id"))
	assert.Equal(t, RefTypes{"merchant/source_ref_url", "harvester/candidate_id", "pivota/external_seed_id"}, refs)
	assert.Equal(t, "merchant/source_ref_url,harvester/candidate_id,pivota/external_seed_id", refs.String())
	assert.Equal(t, "system/type", refs.Type())

	err := refs.Set("merchant/")
	assert.True(t, errors.IsValidationError(err))
	assert.Len(t, refs, 3)
}
