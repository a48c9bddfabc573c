package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/ui"
	"github.com/yllada/vpn-connector/vpn"
)

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create or update the connection entry in the phonebook",
		Action: func(c *cli.Context) error {
			rt := runtimeFrom(c)
			conn, err := rt.Connector("")
			if err != nil {
				return err
			}
			if err := conn.CreateOrUpdate(c.Context); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "✓ Entry %s written (%s, %s)\n",
				conn.Profile().Name(), conn.Profile().Protocol(), conn.RasVpnStrategy())
			return nil
		},
	}
}

func connectCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Dial the entry and wait until it is active",
		Flags: passwordFlags(),
		Action: func(c *cli.Context) error {
			rt := runtimeFrom(c)
			pw, save, err := resolvePassword(c, rt)
			if err != nil {
				return err
			}
			conn, err := rt.Connector(pw)
			if err != nil {
				return err
			}

			name := conn.Profile().Name()
			fmt.Fprintf(c.App.Writer, "Connecting to %s...\n", name)
			res := conn.TryConnect(c.Context)
			if err := reportResult(c, res, name); err != nil {
				return err
			}
			if save {
				storePassword(c, rt, name, pw)
			}
			return nil
		},
	}
}

func disconnectCommand() *cli.Command {
	return &cli.Command{
		Name:  "disconnect",
		Usage: "Hang up the entry and wait until it is inactive",
		Action: func(c *cli.Context) error {
			conn, err := runtimeFrom(c).Connector("")
			if err != nil {
				return err
			}
			name := conn.Profile().Name()
			fmt.Fprintf(c.App.Writer, "Disconnecting from %s...\n", name)
			return reportResult(c, conn.TryDisconnect(c.Context), name)
		},
	}
}

// reportResult prints res and turns a failure into an error.
func reportResult(c *cli.Context, res vpn.Result, name string) error {
	if cause := res.Cause; cause != nil && res.Succeeded {
		fmt.Fprintf(c.App.ErrWriter, "Warning: %v\n", cause)
	}
	if !res.Succeeded {
		return fmt.Errorf("%s: %w (after %s)", name, res.Err(), formatDuration(res.Elapsed))
	}

	verb := "Connected to"
	if res.Op == vpn.OpDisconnect {
		verb = "Disconnected from"
	}
	fmt.Fprintf(c.App.Writer, "✓ %s %s (%s)\n", verb, name, formatDuration(res.Elapsed))
	return nil
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Disconnect and remove the entry from the phonebook",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "keep-password",
				Usage: "Keep the stored password",
			},
		},
		Action: func(c *cli.Context) error {
			rt := runtimeFrom(c)
			conn, err := rt.Connector("")
			if err != nil {
				return err
			}
			name := conn.Profile().Name()
			if err := conn.TryDelete(c.Context); err != nil {
				return err
			}
			if !c.Bool("keep-password") {
				if err := rt.Vault.Delete(name); err != nil {
					common.LogWarn("Could not remove stored password for %s: %v", name, err)
				}
			}
			fmt.Fprintf(c.App.Writer, "✓ Entry %s deleted\n", name)
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the entry and whether it is active",
		Action: func(c *cli.Context) error {
			rt := runtimeFrom(c)
			conn, err := rt.Connector("")
			if err != nil {
				return err
			}
			p := conn.Profile()

			status := common.StatusError
			active, probeErr := conn.IsActive(c.Context)
			if probeErr == nil {
				status = common.StatusFromActive(active)
			}

			inBook := "no"
			if book, err := rt.Backend.Opener.Open(c.Context); err == nil {
				if ok, err := book.Contains(c.Context, p.Name()); err == nil && ok {
					inBook = "yes"
				}
				_ = book.Close()
			}

			device := "-"
			if d, err := conn.RasDevice(c.Context); err == nil {
				device = d.Name
			}

			helper := conn.HelperPath()
			if helper == "" {
				helper = "-"
			}

			saved := "no"
			if rt.Vault.Exists(p.Name()) {
				saved = "yes"
				if b, ok := rt.Vault.(interface{ Backend() string }); ok {
					saved = fmt.Sprintf("yes (%s)", b.Backend())
				}
			}

			rows := []string{
				ui.Field("Entry", p.Name()),
				ui.Field("Server", p.ServerAddress()),
				ui.Field("User", p.Username()),
				ui.Field("Protocol", fmt.Sprintf("%s (%s)", p.Protocol(), conn.RasVpnStrategy())),
				ui.Field("Device", device),
				ui.Field("Phonebook", fmt.Sprintf("%s %s", rt.Config.PhoneBook.Backend, rt.Backend.Path)),
				ui.Field("In book", inBook),
				ui.Field("Helper", helper),
				ui.Field("Password", saved),
				ui.Field("Status", ui.StatusBadge(status)),
			}
			if probeErr != nil {
				rows = append(rows, ui.Field("Probe", ui.ErrorStyle.Render(probeErr.Error())))
			}
			fmt.Fprintln(c.App.Writer, ui.Panel(common.AppName, rows...))
			return nil
		},
	}
}

func entriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "entries",
		Usage: "List the entries in the phonebook",
		Action: func(c *cli.Context) error {
			rt := runtimeFrom(c)
			book, err := rt.Backend.Opener.Open(c.Context)
			if err != nil {
				return err
			}
			defer book.Close()

			entries, err := book.Entries(c.Context)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(c.App.Writer, "No entries in the phonebook.")
				return nil
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSERVER\tSTRATEGY\tDEVICE")
			fmt.Fprintln(w, "----\t------\t--------\t------")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.PhoneNumber, e.Strategy, e.Device.Name)
			}
			return w.Flush()
		},
	}
}

func devicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List the RAS devices",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "vpn",
				Usage: "Only list VPN devices",
			},
		},
		Action: func(c *cli.Context) error {
			devices, err := runtimeFrom(c).Backend.Devices.Devices(c.Context)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(c.App.Writer, "No VPN devices found.")
				return nil
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE")
			fmt.Fprintln(w, "----\t----")
			for _, d := range devices {
				if c.Bool("vpn") && !common.ContainsFold(d.Type, "vpn") {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\n", d.Name, d.Type)
			}
			return w.Flush()
		},
	}
}

func monitorFlags() []cli.Flag {
	return append(passwordFlags(),
		&cli.BoolFlag{
			Name:  "reconnect",
			Usage: "Reconnect automatically when the link drops",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address (e.g. :9464)",
		},
	)
}

// interactiveConnector resolves credentials and metrics for the long
// running commands.
func interactiveConnector(c *cli.Context) (*Runtime, *vpn.Connector, error) {
	rt := runtimeFrom(c)
	if c.IsSet("reconnect") {
		rt.Config.Monitor.AutoReconnect = c.Bool("reconnect")
	}
	addr := rt.Config.Metrics.Address
	if c.IsSet("metrics-addr") {
		addr = c.String("metrics-addr")
	}
	if addr != "" {
		rt.EnableMetrics(c.Context, addr)
	}

	pw, save, err := resolvePassword(c, rt)
	if err != nil {
		return nil, nil, err
	}
	conn, err := rt.Connector(pw)
	if err != nil {
		return nil, nil, err
	}
	if save {
		storePassword(c, rt, conn.Profile().Name(), pw)
	}
	return rt, conn, nil
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Interactive live view (c connect, d disconnect, q quit)",
		Flags: monitorFlags(),
		Action: func(c *cli.Context) error {
			rt, conn, err := interactiveConnector(c)
			if err != nil {
				return err
			}
			mon := ui.NewMonitor(conn, rt.Config.Monitor)
			return ui.RunWatch(c.Context, conn, mon)
		},
	}
}

func trayCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "tray",
		Usage: "Run the system tray indicator",
		Flags: append(monitorFlags(),
			&cli.BoolFlag{
				Name:  "disconnect-on-exit",
				Usage: "Hang up the connection when the tray quits",
			},
		),
		Action: func(c *cli.Context) error {
			rt, conn, err := interactiveConnector(c)
			if err != nil {
				return err
			}
			app := ui.NewApplication(conn, rt.Config, version)
			app.SetDisconnectOnExit(c.Bool("disconnect-on-exit"))
			app.Run(c.Context)
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or initialise the configuration file",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the effective configuration to the config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: func(c *cli.Context) error {
					rt := runtimeFrom(c)
					if common.FileExists(rt.ConfigPath) && !c.Bool("force") {
						return fmt.Errorf("%w: %s already exists (use --force)", common.ErrConfigSave, rt.ConfigPath)
					}
					if err := rt.Config.Save(rt.ConfigPath); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "✓ Configuration written to %s\n", rt.ConfigPath)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Action: func(c *cli.Context) error {
					data, err := runtimeFrom(c).Config.Marshal()
					if err != nil {
						return err
					}
					_, err = c.App.Writer.Write(data)
					return err
				},
			},
			{
				Name:  "path",
				Usage: "Print the config file location",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, runtimeFrom(c).ConfigPath)
					return nil
				},
			},
		},
	}
}

// ExitCode maps a command error onto a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}
