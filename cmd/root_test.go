package cmd //nolint:testpackage // drives the package-level root command

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeRoot runs the root command with args and returns its output. Global
// flag and viper state is restored afterwards.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		_ = rootCmd.PersistentFlags().Set("debug", "false")
		_ = rootCmd.PersistentFlags().Set("config", "")
		Debug = false
		cfgFile = ""
		viper.Reset()
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRoot_Version(t *testing.T) {
	out, err := executeRoot(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "catalog-ingestor version "+Version+"\n", out)
}

func TestRoot_HelpListsCommands(t *testing.T) {
	out, err := executeRoot(t, "--help")
	require.NoError(t, err)

	for _, name := range []string{"crawl", "resume", "sessions", "changes", "httpd", "migrate", "version"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "--config")
	assert.Contains(t, out, "--debug")
}

func TestRoot_DebugFlagEnablesDebugConfig(t *testing.T) {
	_, err := executeRoot(t, "--debug", "version")
	require.NoError(t, err)

	assert.True(t, Debug)
	assert.True(t, viper.GetBool("app.debug"))
	assert.Equal(t, "debug", viper.GetString("logger.level"))
}

func TestRoot_DefaultsAndEnvBindings(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("PORT", "9090")
	t.Setenv("CRAWL_INTERVAL", "15m")

	_, err := executeRoot(t, "version")
	require.NoError(t, err)

	assert.False(t, viper.GetBool("app.debug"))
	assert.Equal(t, "db.internal", viper.GetString("database.host"))
	assert.Equal(t, 9090, viper.GetInt("server.port"))
	assert.Equal(t, "15m", viper.GetString("scheduler.interval"))
	assert.Equal(t, "https://books.toscrape.com", viper.GetString("source.base_url"))
}

func TestRoot_ExplicitConfigFileMustExist(t *testing.T) {
	_, err := executeRoot(t, "--config", t.TempDir()+"/missing.yml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
