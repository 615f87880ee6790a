package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rootCmd carries package-level flag state (cfgFile), so these tests run
// sequentially rather than in parallel and reset flags after each run.

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { cfgFile = "" })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand_PrintsVersionInfo(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "neko")
	assert.Contains(t, out, Version)
}

func TestInitCommand_WritesSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := runCLI(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created at")
	assert.FileExists(t, path)
}

func TestInitCommand_RefusesOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := runCLI(t, "init", "--config", path)
	require.NoError(t, err)

	_, err = runCLI(t, "init", "--config", path)
	assert.Error(t, err)
}

func validConfigYAML(t *testing.T, dbPath string) string {
	t.Helper()
	return fmt.Sprintf(`
discord:
  bot_token: "token"
  channel_id: "chan-1"
database:
  type: sqlite
  sqlite_path: %q
`, dbPath)
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "neko.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte(validConfigYAML(t, dbPath)), 0o644))
	return cfgPath
}

func TestStatsCommand_PrintsComputedStats(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := runCLI(t, "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Active files")
	assert.Contains(t, out, "Index size")
}

func TestVacuumCommand_ForcedRunsWithoutPrompt(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := runCLI(t, "vacuum", "--config", cfgPath, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Vacuum complete.")
}

func TestBackupCommand_RequiresBackupChannel(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := runCLI(t, "backup", "--config", cfgPath)
	assert.ErrorContains(t, err, "backup_channel_id")
}
