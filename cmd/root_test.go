package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"run", "bom", "vendors", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "bom-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_RequiredFlags(t *testing.T) {
	for _, name := range []string{"vendor", "bom", "placement"} {
		flag := runCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "run command should have --%s flag", name)
		assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
	}

	for _, name := range []string{"job-id", "customer-id", "report", "report-out"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run command should have --%s flag", name)
	}
}

func TestBomCommand_Flags(t *testing.T) {
	require.NotNil(t, bomCmd.Flags().Lookup("vendor"))
	require.NotNil(t, bomCmd.Flags().Lookup("bom"))
	require.NotNil(t, bomCmd.Flags().Lookup("sheet"))
	require.NotNil(t, runCmd.Flags().Lookup("sheet"))
	flag := bomCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	cmds := runsCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"list", "show", "stats"}
	for _, name := range expected {
		assert.True(t, names[name], "expected runs subcommand %q not found", name)
	}

	limit := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "50", limit.DefValue)
}
