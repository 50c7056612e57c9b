package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/reelbot/config"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// captureConfig replaces the run action with one that records the loaded
// configuration.
func captureConfig(t *testing.T, args ...string) (*config.Config, error) {
	app := newApp()
	var cfg *config.Config
	for _, cmd := range app.Commands {
		if cmd.Name == "run" {
			cmd.Action = func(c *cli.Context) error {
				var err error
				cfg, err = loadConfig(c)
				return err
			}
		}
	}
	err := app.Run(append([]string{"reelbot"}, args...))
	return cfg, err
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelbot.yaml")
	yaml := `
telegram:
  token: "file-token"
  source_channel: -100111
  operator_ids: [1, 2]
search:
  result_limit: 5
  match_mode: list
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := captureConfig(t, "--config", path, "run",
		"--token", "flag-token",
		"--admins", "10, 20,30",
		"--match-mode", "ALL",
	)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "flag-token", cfg.Telegram.Token)
	assert.Equal(t, int64(-100111), cfg.Telegram.SourceChannel)
	assert.Equal(t, []int64{10, 20, 30}, cfg.Telegram.OperatorIDs)
	assert.Equal(t, 5, cfg.Search.ResultLimit)
	assert.Equal(t, config.MatchAll, cfg.Search.MatchMode)
	assert.Equal(t, "./reelbot-data", cfg.Storage.DataDir)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("CHANNEL_ID", "-100222")
	t.Setenv("RESULTS_COUNT", "3")
	t.Setenv("DATABASE_PATH", "/var/lib/reelbot")

	cfg, err := captureConfig(t, "run")
	require.NoError(t, err)

	assert.Equal(t, int64(-100222), cfg.Telegram.SourceChannel)
	assert.Equal(t, 3, cfg.Search.ResultLimit)
	assert.Equal(t, "/var/lib/reelbot", cfg.Storage.DataDir)
}

func TestLoadConfig_InvalidAdmins(t *testing.T) {
	_, err := captureConfig(t, "run", "--admins", "1,two")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidValue))
}

func TestRunCommand_RequiresToken(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"reelbot", "run", "--db", t.TempDir(), "--token", " ", "--channel", "-1001"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrTokenMissing))
}

func seedDatabase(t *testing.T) string {
	dir := filepath.Join(t.TempDir(), "db")
	repos, err := badger.OpenRepositories(dir, false)
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	_, err = repos.Catalog.UpsertRecords(ctx,
		&core.CatalogRecord{ID: 1, Title: "Inception", CreatedAt: time.Now()},
		&core.CatalogRecord{ID: 2, Title: "Tenet", CreatedAt: time.Now()},
	)
	require.NoError(t, err)
	_, err = repos.Users.TouchUser(ctx, 42, "Rafi")
	require.NoError(t, err)
	_, err = repos.Escalations.RecordRequest(ctx, "interstellar", 42, time.Now())
	require.NoError(t, err)
	return dir
}

func runWithOutput(t *testing.T, args ...string) string {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	require.NoError(t, app.Run(append([]string{"reelbot"}, args...)))
	return out.String()
}

func TestStatsCommand(t *testing.T) {
	dir := seedDatabase(t)

	out := runWithOutput(t, "stats", "--db", dir)

	assert.Contains(t, out, "Users:            1")
	assert.Contains(t, out, "Movies:           2")
	assert.Contains(t, out, "Feedback:         0")
	assert.Contains(t, out, "Pending requests: 1")
}

func TestRequestCommands(t *testing.T) {
	dir := seedDatabase(t)

	out := runWithOutput(t, "requests", "--db", dir)
	assert.Contains(t, out, "interstellar\t1 users")

	out = runWithOutput(t, "purge-requests", "--db", dir)
	assert.Equal(t, "1 requests cleared.\n", out)

	out = runWithOutput(t, "requests", "-d", dir)
	assert.Equal(t, "No pending requests.\n", out)
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := newApp()
		err := app.Run([]string{"reelbot", "--log-level", "invalid", "stats"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := newApp()
		var flag *cli.StringFlag
		for _, f := range app.Flags {
			if sf, ok := f.(*cli.StringFlag); ok && sf.Name == "log-level" {
				flag = sf
			}
		}
		require.NotNil(t, flag)
		assert.Equal(t, []string{"l"}, flag.Aliases)
		assert.Equal(t, "info", flag.Value)
	})
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
