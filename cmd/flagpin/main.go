// Package main provides the flagpin CLI: force feature-flag values on live
// pages by writing them into page storage and patching the in-page SDK.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "flagpin",
		Short: "Pin feature-flag values on live web pages",
		Long: `flagpin forces feature flags, dynamic configs and experiments on a live page
without touching server-side configuration.

Overrides are written into localStorage, sessionStorage or cookies, and when
the page runs a flag-evaluation SDK its gate/config/experiment lookups are
intercepted so the forced value wins. Active overrides are kept in a local
registry and can be re-applied after a reload.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.flagpin/config.yaml)")
	flags.StringVarP(&a.tabSelector, "tab", "t", "", "tab to act on: index, id or URL substring (default first web tab)")
	flags.StringVar(&a.cdpURL, "cdp-url", "", "attach to a running browser at this debugging endpoint")
	flags.BoolVar(&a.headless, "headless", false, "launch the browser without a window")
	flags.StringVar(&a.openURL, "open", "", "open this URL in a new tab before running the command")
	flags.BoolVar(&a.jsonOutput, "json", false, "print results as JSON")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		tabsCmd(a),
		checkCmd(a),
		listCmd(a),
		setCmd(a),
		removeCmd(a),
		clearCmd(a),
		readCmd(a),
		writeCmd(a),
		userCmd(a),
		sdkCmd(a),
		reapplyCmd(a),
		versionCmd(),
	)
	return root
}
