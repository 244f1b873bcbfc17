package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParams_FileThenInline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strict_syntax: false\natol: 0.1\n"), 0o600))

	paramsFile, paramsJSON = path, `{"atol": 0.5}`
	t.Cleanup(func() { paramsFile, paramsJSON = "", "" })

	p, err := loadParams()
	require.NoError(t, err)
	require.NotNil(t, p.StrictSyntax)
	assert.False(t, *p.StrictSyntax)
	require.NotNil(t, p.Atol)
	assert.Equal(t, 0.5, *p.Atol)
}

func TestLoadParams_BadInline(t *testing.T) {
	paramsJSON = `{"atol":`
	t.Cleanup(func() { paramsJSON = "" })

	_, err := loadParams()
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SYMGRADE_TEST_PORT", "9090")
	t.Setenv("SYMGRADE_TEST_BAD", "ninety")
	assert.Equal(t, 9090, getEnvInt("SYMGRADE_TEST_PORT", 8080))
	assert.Equal(t, 8080, getEnvInt("SYMGRADE_TEST_BAD", 8080))
	assert.Equal(t, "fallback", getEnvString("SYMGRADE_TEST_UNSET", "fallback"))
}

func TestRootCommand_Eval(t *testing.T) {
	rootCmd.SetArgs([]string{"eval", "--answer", "x**2 - 1", "(x - 1)*(x + 1)"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); evalAnswer = "" })
	assert.NoError(t, rootCmd.Execute())
}

func TestRootCommand_EvalConfigurationError(t *testing.T) {
	rootCmd.SetArgs([]string{"eval", "x"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	assert.Error(t, rootCmd.Execute())
}
