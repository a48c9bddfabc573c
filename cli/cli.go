// Package cli provides the command-line interface for VPN Connector.
//
// It uses urfave/cli/v2 for command parsing. Global flags override the
// loaded configuration; each command then builds a vpn.Connector for the
// single managed entry.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/config"
	"github.com/yllada/vpn-connector/keyring"
	"github.com/yllada/vpn-connector/metrics"
	"github.com/yllada/vpn-connector/phonebook"
	"github.com/yllada/vpn-connector/vpn"
)

const runtimeKey = "runtime"

// App creates the CLI application. Extra connector options are appended
// after the ones derived from configuration.
func App(version string, extra ...vpn.Option) *cli.App {
	return &cli.App{
		Name:                 "vpn-connector",
		Usage:                "Manage a single Windows VPN connection entry",
		Version:              version,
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			createCommand(),
			connectCommand(),
			disconnectCommand(),
			deleteCommand(),
			statusCommand(),
			entriesCommand(),
			devicesCommand(),
			watchCommand(),
			trayCommand(version),
			configCommand(),
		},
		Metadata: map[string]interface{}{},
		Before: func(c *cli.Context) error {
			rt, err := newRuntime(c, extra)
			if err != nil {
				return err
			}
			c.App.Metadata[runtimeKey] = rt
			return nil
		},
		After: func(c *cli.Context) error {
			return common.CloseLogger()
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default: user config dir)",
			EnvVars: []string{"VPNC_CONFIG"},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose logging",
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "VPN server address",
		},
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Connection entry name (default: server address)",
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "Username",
		},
		&cli.StringFlag{
			Name:    "protocol",
			Aliases: []string{"p"},
			Usage:   "Tunnel protocol: sstp, ikev2",
		},
		&cli.StringFlag{
			Name:  "helper",
			Usage: "Path to the dial helper (rasdial.exe)",
		},
		&cli.StringFlag{
			Name:  "phonebook",
			Usage: "Phonebook backend: pbk, sqlite, memory",
		},
		&cli.StringFlag{
			Name:  "phonebook-path",
			Usage: "Phonebook file for the pbk and sqlite backends",
		},
		&cli.IntFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Number of one-second checks to wait after connect or disconnect",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Use an in-memory phonebook and do not launch the dial helper",
		},
	}
}

// Runtime is the per-invocation state shared by the commands.
type Runtime struct {
	Config     *config.Config
	ConfigPath string
	Backend    *phonebook.Backend
	Vault      common.CredentialStore
	Recorder   *metrics.Recorder
	DryRun     bool

	extra []vpn.Option
}

func newRuntime(c *cli.Context, extra []vpn.Option) (*Runtime, error) {
	path := c.String("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)

	if err := common.InitLogger(cfg.LoggerConfig(c.Bool("verbose"))); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "Warning: Could not initialize file logging: %v\n", err)
	}

	dryRun := c.Bool("dry-run")
	if dryRun {
		cfg.PhoneBook.Backend = common.PhoneBookMemory
	}

	backend, err := phonebook.New(phonebook.Options{
		Backend: cfg.PhoneBook.Backend,
		Path:    cfg.PhoneBook.Path,
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config:     cfg,
		ConfigPath: path,
		Backend:    backend,
		Vault:      keyring.Default(),
		DryRun:     dryRun,
		extra:      extra,
	}, nil
}

// applyFlags overrides configuration with the global flags that were set.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("server") {
		cfg.Connection.ServerAddress = c.String("server")
	}
	if c.IsSet("name") {
		cfg.Connection.Name = c.String("name")
	}
	if c.IsSet("user") {
		cfg.Connection.Username = c.String("user")
	}
	if c.IsSet("protocol") {
		cfg.Connection.Protocol = c.String("protocol")
	}
	if c.IsSet("helper") {
		cfg.Dialer.Path = c.String("helper")
	}
	if c.IsSet("phonebook") {
		cfg.PhoneBook.Backend = c.String("phonebook")
	}
	if c.IsSet("phonebook-path") {
		cfg.PhoneBook.Path = c.String("phonebook-path")
	}
	if c.IsSet("timeout") {
		cfg.Wait.TimeoutSeconds = c.Int("timeout")
	}
}

// runtimeFrom retrieves the runtime set up in Before.
func runtimeFrom(c *cli.Context) *Runtime {
	if rt, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
		return rt
	}
	return nil
}

// Profile builds the connection identity from configuration.
func (rt *Runtime) Profile(password string) (vpn.Profile, error) {
	conn := rt.Config.Connection
	proto, err := vpn.ParseProtocol(conn.Protocol)
	if err != nil {
		return vpn.Profile{}, err
	}
	return vpn.NewProfile(conn.ServerAddress, conn.Name, conn.Username, password, proto)
}

// Connector builds a connector for the configured entry.
func (rt *Runtime) Connector(password string) (*vpn.Connector, error) {
	profile, err := rt.Profile(password)
	if err != nil {
		return nil, err
	}

	probe := rt.Config.Probe
	adapter := probe.Adapter
	if adapter == "" {
		adapter = profile.Name()
	}
	detector, err := vpn.NewDetector(vpn.DetectorOptions{
		Mode:    probe.Mode,
		Adapter: adapter,
		Command: probe.Command,
		Timeout: probe.Timeout,
		Marker:  probe.Marker,
	})
	if err != nil {
		return nil, err
	}

	opts := []vpn.Option{
		vpn.WithPhoneBook(rt.Backend.Opener),
		vpn.WithDevices(rt.Backend.Devices),
		vpn.WithDetector(detector),
		vpn.WithPollInterval(rt.Config.Wait.Interval),
		vpn.WithTimeout(rt.Config.Wait.TimeoutSeconds),
	}
	if rt.Recorder != nil {
		opts = append(opts, vpn.WithObserver(rt.Recorder))
	}
	if rt.DryRun {
		opts = append(opts, vpn.WithDialer(dryRunDialer{}))
	}
	opts = append(opts, rt.extra...)

	conn := vpn.NewConnector(profile, opts...)
	if rt.Config.Dialer.Path != "" && !rt.DryRun {
		if err := conn.SetHelperPath(rt.Config.Dialer.Path); err != nil {
			return nil, err
		}
	}
	return conn, nil
}

// EnableMetrics attaches a Prometheus recorder to connectors built from
// now on and serves it on addr until ctx is done.
func (rt *Runtime) EnableMetrics(ctx context.Context, addr string) {
	rt.Recorder = metrics.NewRecorder()
	go func() {
		if err := rt.Recorder.Serve(ctx, addr); err != nil {
			common.LogError("Metrics endpoint on %s stopped: %v", addr, err)
		}
	}()
}

// dryRunDialer logs instead of launching the dial helper.
type dryRunDialer struct{}

func (dryRunDialer) Dial(ctx context.Context, name, username, password string) error {
	common.LogInfo("dry-run: would dial %s as %s", name, username)
	return nil
}

func (dryRunDialer) HangUp(ctx context.Context, name string) error {
	common.LogInfo("dry-run: would hang up %s", name)
	return nil
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := d.Seconds() - float64(int(d.Minutes())*60)

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %.0fs", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %.0fs", minutes, seconds)
	}
	return fmt.Sprintf("%.1fs", seconds)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
