package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func testApp() *cli.App {
	return &cli.App{
		Name: "curator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "candidates",
						Aliases:  []string{"f"},
						Required: true,
					},
				},
			},
		},
	}
}

func TestRunCommandFlags(t *testing.T) {
	t.Run("candidates is required", func(t *testing.T) {
		err := testApp().Run([]string{"curator", "run"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "candidates")
	})
}

func TestSetupLogger(t *testing.T) {
	noop := func(c *cli.Context) error { return nil }

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			t.Run(level, func(t *testing.T) {
				app := testApp()
				app.Action = noop
				err := app.Run([]string{"curator", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, level := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(level, func(t *testing.T) {
				app := testApp()
				app.Action = noop
				err := app.Run([]string{"curator", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := testApp()
		app.Action = noop
		err := app.Run([]string{"curator", "--log-level", "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
