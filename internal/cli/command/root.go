// Package command provides CLI command definitions for panelctl.
package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danilovkiri/dk-go-panel/internal/api/rest/client"
	"github.com/danilovkiri/dk-go-panel/internal/logger"
	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const clientKey = "client"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "panelctl",
		Usage:   "command-line client for the panel backend",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SignupCommand(),
			LoginCommand(),
			ServicesCommand(),
			BalanceCommand(),
			FundCommand(),
			RequestsCommand(),
			OrderCommand(),
			OrdersCommand(),
			ApproveCommand(),
		},
		Before: func(c *cli.Context) error {
			log := logger.InitLog(c.String("log-level"))
			c.App.Metadata = map[string]any{
				clientKey: client.InitClient(c.String("server"), c.String("token"), log),
			}
			return nil
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "panel server base URL",
			EnvVars: []string{"PANEL_SERVER"},
			Value:   "http://localhost:10000",
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "session token returned by login",
			EnvVars: []string{"PANEL_TOKEN"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "client log level",
			Value: "warn",
		},
	}
}

func getClient(c *cli.Context) (*client.Client, error) {
	if cl, ok := c.App.Metadata[clientKey].(*client.Client); ok {
		return cl, nil
	}
	return nil, errors.New("client not initialized")
}

// printJSON writes v as indented JSON to the app's output.
func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
