package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultindex/vaultindex/internal/errors"
)

func TestInitWritesConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote .vaultindex.yaml")

	data, err := os.ReadFile(configFileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), "collection_name: vault_notes")
}

func TestInitRefusesToOverwrite(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "init")
	require.NoError(t, err)

	_, err = execute(t, "init")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))

	_, err = execute(t, "init", "--force")
	require.NoError(t, err)
}

func TestInitTemplateIsLoadable(t *testing.T) {
	setTestEnv(t)
	t.Chdir(t.TempDir())

	_, err := execute(t, "init")
	require.NoError(t, err)

	// The generated file must parse and validate as-is.
	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "vault_notes")
}