package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/physutils/internal/testutil"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "physutils", cmd.Use)
	assert.Contains(t, cmd.Long, "history document")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"load"}, {"history"}, {"replay"}, {"transform"}, {"test"},
		{"catalog", "list"}, {"catalog", "show"}, {"catalog", "export"},
		{"catalog", "find"}, {"catalog", "delete"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestOutputFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"load", "replay", "transform"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)

		out := sub.Flags().Lookup("output")
		require.NotNil(t, out, name)
		assert.Equal(t, "o", out.Shorthand)
		assert.NotNil(t, sub.Flags().Lookup("save-history"), name)
		assert.NotNil(t, sub.Flags().Lookup("db"), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	src := testutil.WriteText(t, t.TempDir(), "resp.txt", []float64{1})

	_, _, err := execute(t, "load", src, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.False(t, Reported(err))
}

func TestConfigFileSetsFormat(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteText(t, dir, "resp.txt", []float64{1, 2})
	cfgPath := filepath.Join(dir, "physutils.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format: json\n"), 0644))

	out, _, err := execute(t, "--config", cfgPath, "load", src)
	require.NoError(t, err)
	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "ok", resp.Status)

	out, _, err = execute(t, "--config", cfgPath, "--format", "text", "load", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Signal: "+src, "the flag wins over the file")
}

func TestConfigFileInvalid(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "physutils.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("formatt: json\n"), 0644))

	_, _, err := execute(t, "--config", cfgPath, "load", "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerboseLogsToStderr(t *testing.T) {
	src := testutil.WriteText(t, t.TempDir(), "resp.txt", []float64{1, 2})

	out, errOut, err := execute(t, "--verbose", "--format", "json", "load", src)
	require.NoError(t, err)
	decodeResponse(t, out, nil)
	assert.Contains(t, errOut, "level=DEBUG")
}
