package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/antonionduarte/go-link-supervisor/pkg/link/config"
	"github.com/antonionduarte/go-link-supervisor/pkg/link/net"
)

// linkcheck prints whether an interface is up with carrier, exiting 0 when
// it is and 1 when it is not.
func main() {
	app := &cli.App{
		Name:  "linkcheck",
		Usage: "report whether a network interface is up with carrier",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "iface", Aliases: []string{"i"}, Value: config.DefaultInterface, Usage: "network interface to query"},
		},
		Action: func(c *cli.Context) error {
			monitor := net.NewLinkMonitor(c.String("iface"), nil)
			if monitor.CheckLinkUp() {
				fmt.Printf("%s: up\n", monitor.Interface())
				return nil
			}
			fmt.Printf("%s: down\n", monitor.Interface())
			return cli.Exit("", 1)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "linkcheck:", err)
		os.Exit(1)
	}
}
