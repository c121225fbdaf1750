package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("Overwrite", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfirmNotInteractive(t *testing.T) {
	orig := Interactive
	Interactive = func() bool { return false }
	t.Cleanup(func() { Interactive = orig })

	_, err := Confirm("Continue", true)
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestConfirmOverwrite(t *testing.T) {
	orig := Interactive
	Interactive = func() bool { return false }
	t.Cleanup(func() { Interactive = orig })

	path := filepath.Join(t.TempDir(), "config.yaml")

	ok, err := ConfirmOverwrite(path, false)
	require.NoError(t, err)
	assert.True(t, ok, "missing file needs no prompt")

	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	_, err = ConfirmOverwrite(path, false)
	assert.ErrorIs(t, err, ErrNotInteractive)

	ok, err = ConfirmOverwrite(path, true)
	require.NoError(t, err)
	assert.True(t, ok)
}
