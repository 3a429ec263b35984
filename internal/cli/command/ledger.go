package command

import (
	"errors"

	"github.com/danilovkiri/dk-go-panel/internal/models/modeldto"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

// FundCommand submits a funding request.
func FundCommand() *cli.Command {
	return &cli.Command{
		Name:  "fund",
		Usage: "request a wallet top-up",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true},
			&cli.StringFlag{Name: "method", Aliases: []string{"m"}, Required: true},
			&cli.StringFlag{Name: "reference", Aliases: []string{"r"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			amount, err := decimal.NewFromString(c.String("amount"))
			if err != nil {
				return errors.New("amount must be a number")
			}
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			request, err := cl.FundRequest(c.Context, modeldto.NewFundingRequest{
				Amount:    amount,
				Method:    c.String("method"),
				Reference: c.String("reference"),
			})
			if err != nil {
				return err
			}
			return printJSON(c, request)
		},
	}
}

// RequestsCommand lists funding requests; --all lists everyone's (admin only).
func RequestsCommand() *cli.Command {
	return &cli.Command{
		Name:  "requests",
		Usage: "list funding requests",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "all", Usage: "list every user's requests (admin)"}},
		Action: func(c *cli.Context) error {
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			var requests []modeldto.FundingRequest
			if c.Bool("all") {
				requests, err = cl.AllRequests(c.Context)
			} else {
				requests, err = cl.MyRequests(c.Context)
			}
			if err != nil {
				return err
			}
			return printJSON(c, requests)
		},
	}
}

// ApproveCommand approves a pending funding request (admin only).
func ApproveCommand() *cli.Command {
	return &cli.Command{
		Name:      "approve",
		Usage:     "approve a pending funding request",
		ArgsUsage: "<request-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("exactly one request id is required")
			}
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			request, err := cl.Approve(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			return printJSON(c, request)
		},
	}
}

// OrderCommand places an order.
func OrderCommand() *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "place an order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "service", Required: true},
			&cli.IntFlag{Name: "quantity", Aliases: []string{"q"}, Required: true},
			&cli.StringFlag{Name: "link", Aliases: []string{"l"}, Required: true},
			&cli.StringFlag{Name: "price", Usage: "expected price, rejected by the server if it differs"},
		},
		Action: func(c *cli.Context) error {
			order := modeldto.NewOrder{
				Service:  c.String("service"),
				Quantity: c.Int("quantity"),
				Link:     c.String("link"),
			}
			if c.IsSet("price") {
				price, err := decimal.NewFromString(c.String("price"))
				if err != nil {
					return errors.New("price must be a number")
				}
				order.Price = &price
			}
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			placed, err := cl.PlaceOrder(c.Context, order)
			if err != nil {
				return err
			}
			return printJSON(c, placed)
		},
	}
}

// OrdersCommand lists orders; --all lists everyone's (admin only).
func OrdersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "list orders",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "all", Usage: "list every user's orders (admin)"}},
		Action: func(c *cli.Context) error {
			cl, err := getClient(c)
			if err != nil {
				return err
			}
			var orders []modeldto.Order
			if c.Bool("all") {
				orders, err = cl.AllOrders(c.Context)
			} else {
				orders, err = cl.MyOrders(c.Context)
			}
			if err != nil {
				return err
			}
			return printJSON(c, orders)
		},
	}
}
