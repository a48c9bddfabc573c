// Package main provides the entry point for VPN Connector.
// VPN Connector manages a single Windows VPN connection entry: it writes
// the entry into the RAS phonebook, dials and hangs it up through
// rasdial.exe, and confirms each transition by probing the network.
//
// Features:
//   - Idempotent create-or-update of the phonebook entry (SSTP or IKEv2)
//   - Connect and disconnect with polling confirmation and a timeout
//   - Secure credential storage using the system keyring
//   - Background monitoring with optional auto-reconnect
//   - System tray indicator and an interactive terminal view
//
// Usage:
//
//	vpn-connector [global options] command [command options]
//
// Environment:
//
//	Dialing requires rasdial.exe (Windows). The sqlite and memory phonebook
//	backends work on any platform.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yllada/vpn-connector/cli"
	"github.com/yllada/vpn-connector/common"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

func main() {
	// Setup graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	version := appVersion
	if buildTime != "unknown" {
		version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, commitSHA, buildTime)
	}

	err := cli.App(version).RunContext(ctx, os.Args)
	if err != nil {
		if ctx.Err() != nil {
			common.LogInfo("Operation cancelled: %v", err)
		}
		cli.PrintError("%v", err)
	}
	stop()
	os.Exit(cli.ExitCode(err))
}
