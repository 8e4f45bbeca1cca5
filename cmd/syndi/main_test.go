package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spboyer/syndi/internal/orchestration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `reasoning:
  backend: mock
  mock_score: 4
ledger:
  dry_run: true
server:
  port: 3999
`

const testCounterparts = `persuader:
  name: Syndi
  system_prompt: You are Syndi.
counterparts:
  - name: Gary
    caliber: low
    model: gpt-4o-mini
    opener: What do you want?
    system_prompt: You are Gary.
    rounds: 1
  - name: Mel
    caliber: medium
    model: gpt-4o
    opener: Convince me.
    system_prompt: You are Mel.
    rounds: 2
`

const testWallets = `{
  "network": "testnet",
  "wallets": {
    "Treasury": {"address": "ST1TREASURY", "index": 0, "role": "treasury"},
    "Gary": {"address": "ST2GARY", "index": 1, "caliber": "low"},
    "Mel": {"address": "ST3MEL", "index": 2, "caliber": "medium"}
  }
}`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		".syndi.yaml":       testConfig,
		"counterparts.yaml": testCounterparts,
		"wallets.json":      testWallets,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitSuccess},
		{"session failure", &SessionFailureError{Message: "1 failed"}, ExitFailed},
		{"wrapped failure", fmt.Errorf("batch: %w", &SessionFailureError{Message: "x"}), ExitFailed},
		{"refusal", &orchestration.PreflightError{Reason: orchestration.ReasonBusy, Code: 429, Message: "busy"}, ExitFailed},
		{"other", errors.New("config error"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestCounterpartsCommand(t *testing.T) {
	dir := writeProject(t)
	out, err := runCLI(t, "counterparts", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Gary")
	assert.Contains(t, out, "Mel")
	assert.Contains(t, out, "1,000")
	assert.NotContains(t, out, "missing")
}

func TestSimulateCommandDryRun(t *testing.T) {
	t.Setenv("DRY_RUN", "true")
	dir := writeProject(t)

	out, err := runCLI(t, "simulate", "Gary", "Mel", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Gary (low, gpt-4o-mini) ===")
	assert.Contains(t, out, "=== Mel (medium, gpt-4o) ===")
	assert.Contains(t, out, "Strong conversion (4/5)")
	assert.Contains(t, out, "Economics:")
	assert.Contains(t, out, "Session payments")
}

func TestSimulateUnknownCounterpartIsRefused(t *testing.T) {
	dir := writeProject(t)
	_, err := runCLI(t, "simulate", "Zed", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailed, exitCode(err))
}

func TestArenaCommandComputesSettlement(t *testing.T) {
	dir := writeProject(t)
	out, err := runCLI(t, "arena", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Gary scored 4")
	assert.Contains(t, out, "Pool 1,000, distributed 1,000, treasury keeps 0")
}

func TestRepeatedCounterpartIsRefused(t *testing.T) {
	dir := writeProject(t)
	for _, args := range [][]string{
		{"arena", "Gary", "Gary"},
		{"simulate", "Mel", "Gary", "Mel"},
	} {
		out, err := runCLI(t, append(args, "--dir", dir)...)
		require.Error(t, err, args)
		assert.Equal(t, ExitFailed, exitCode(err))
		assert.NotContains(t, out, "scored")
	}
}

func TestSessionsListEmpty(t *testing.T) {
	dir := writeProject(t)
	out, err := runCLI(t, "sessions", "list", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No session logs found.")
}
