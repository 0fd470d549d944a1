// Command shop-admin runs operator actions against the shop database.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/urfave/cli/v2"

	"github.com/xenking/kart-shop/internal/domain/order"
	"github.com/xenking/kart-shop/internal/storage/postgres"
)

// Orders is the subset of order.Service used by the commands.
type Orders interface {
	GrantRefund(ctx context.Context, refCode string) error
	ListPlaced(ctx context.Context, filter order.ListFilter) ([]order.Order, error)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newApp(connect).RunContext(ctx, os.Args); err != nil {
		slog.Error("shop-admin failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// connect opens the database named by the --database-url flag.
func connect(c *cli.Context) (Orders, func(), error) {
	pool, err := postgres.NewPool(c.Context, c.String("database-url"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to database")
	}
	svc := order.NewService(
		postgres.NewCatalogRepository(pool),
		postgres.NewCouponRepository(pool),
		postgres.NewOrderRepository(pool),
		postgres.NewTransactor(pool),
	)
	return svc, pool.Close, nil
}

func newApp(open func(*cli.Context) (Orders, func(), error)) *cli.App {
	withOrders := func(fn func(c *cli.Context, orders Orders) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			orders, closeFn, err := open(c)
			if err != nil {
				return err
			}
			defer closeFn()
			return fn(c, orders)
		}
	}

	return &cli.App{
		Name:  "shop-admin",
		Usage: "operator actions for the shop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "PostgreSQL connection URL",
				EnvVars:  []string{"KART_DATABASE_URL", "DATABASE_URL"},
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "refunds",
				Usage: "manage refund requests",
				Subcommands: []*cli.Command{
					{
						Name:  "grant",
						Usage: "accept the pending refund of an order",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "ref", Usage: "order reference code", Required: true},
						},
						Action: withOrders(func(c *cli.Context, orders Orders) error {
							ref := c.String("ref")
							if err := orders.GrantRefund(c.Context, ref); err != nil {
								return errors.Wrapf(err, "grant refund for %s", ref)
							}
							_, _ = fmt.Fprintf(c.App.Writer, "refund granted for %s\n", ref)
							return nil
						}),
					},
				},
			},
			{
				Name:  "orders",
				Usage: "inspect placed orders",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list placed orders, newest first",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "refund-requested", Usage: "only orders with a refund request"},
							&cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum number of orders"},
						},
						Action: withOrders(func(c *cli.Context, orders Orders) error {
							list, err := orders.ListPlaced(c.Context, order.ListFilter{
								RefundRequested: c.Bool("refund-requested"),
								Limit:           c.Int("limit"),
							})
							if err != nil {
								return errors.Wrap(err, "list orders")
							}
							return printOrders(c.App.Writer, list)
						}),
					},
				},
			},
		},
	}
}

func printOrders(w io.Writer, list []order.Order) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "REF\tUSER\tORDERED\tPAID\tDELIVERY\tREFUND")
	for _, o := range list {
		ordered := "-"
		if o.OrderedDate != nil {
			ordered = o.OrderedDate.UTC().Format(time.RFC3339)
		}
		delivery := "-"
		switch {
		case o.Received:
			delivery = "received"
		case o.BeingDelivered:
			delivery = "in transit"
		}
		refund := "-"
		switch {
		case o.RefundGranted:
			refund = "granted"
		case o.RefundRequested:
			refund = "requested"
		}
		paid := "-"
		if o.AmountPaid.Valid {
			paid = o.AmountPaid.Decimal.StringFixed(2)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.RefCode, o.UserID, ordered, paid, delivery, refund)
	}
	return tw.Flush()
}
