package command

import (
	"github.com/danilovkiri/dk-go-panel/internal/models/modeldto"
	"github.com/urfave/cli/v2"
)

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
		&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, EnvVars: []string{"PANEL_PASSWORD"}},
	}
}

// SignupCommand registers a new account.
func SignupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "create an account",
		Flags: credentialFlags(),
		Action: func(c *cli.Context) error {
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			msg, err := cl.Signup(c.Context, modeldto.Credentials{Username: c.String("username"), Password: c.String("password")})
			if err != nil {
				return err
			}
			return printJSON(c, msg)
		},
	}
}

// LoginCommand prints a session token; export it as PANEL_TOKEN.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "obtain a session token",
		Flags: credentialFlags(),
		Action: func(c *cli.Context) error {
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			token, err := cl.Login(c.Context, modeldto.Credentials{Username: c.String("username"), Password: c.String("password")})
			if err != nil {
				return err
			}
			return printJSON(c, token)
		},
	}
}

// ServicesCommand lists the catalog.
func ServicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "services",
		Usage: "list purchasable services",
		Action: func(c *cli.Context) error {
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			services, err := cl.Services(c.Context)
			if err != nil {
				return err
			}
			return printJSON(c, services)
		},
	}
}

// BalanceCommand shows the caller's balance.
func BalanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "show wallet balance",
		Action: func(c *cli.Context) error {
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			balance, err := cl.Balance(c.Context)
			if err != nil {
				return err
			}
			return printJSON(c, balance)
		},
	}
}
