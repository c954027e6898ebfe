package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/flagpin/pkg/engine"
	"github.com/entrhq/flagpin/pkg/executor"
	"github.com/entrhq/flagpin/pkg/types"
)

func setCmd(a *app) *cobra.Command {
	var in engine.Input

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Create or replace an override on the tab",
		Long: `Set writes value under key in the chosen storage and records the override.
A second set for the same kind, key and domain replaces the first.

With --feature and --type the page SDK is patched as well, so evaluating that
gate, config or experiment returns the forced value.

Page effects only outlive the command when attached to a running browser with
--cdp-url. Without it flagpin launches its own Chromium and closes it on exit;
the override stays in the registry and "flagpin reapply" restores it later.`,
		Example: `  flagpin set flag_x true
  flagpin set tier premium --kind cookie --domain example.com
  flagpin set new_checkout true --feature new_checkout --type gate`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Key, in.Value = args[0], args[1]
			return a.run(true, func() error {
				tabID, err := a.tab()
				if err != nil {
					return err
				}

				res := a.engine.CreateOverride(cmd.Context(), tabID, in)
				if a.emit(res) {
					return check(res.Result)
				}
				if err := check(res.Result); err != nil {
					return err
				}

				verb := "created"
				if res.Replaced {
					verb = "replaced"
				}
				success("%s %s = %s", verb, res.Override.ID, res.Override.Value)
				if res.Override.Intercepts() {
					preview := executor.ParseFeatureValue(types.FeatureType(in.FeatureType), in.Value)
					info("%s %s evaluates to %v", in.FeatureType, in.FeatureName, preview)
				}
				if res.Detail != "" {
					info("%s", res.Detail)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&in.Kind, "kind", "k", "localStorage", "storage kind: localStorage, sessionStorage or cookie")
	cmd.Flags().StringVar(&in.Domain, "domain", "", "cookie domain")
	cmd.Flags().StringVar(&in.Path, "path", "", "cookie path (default /)")
	cmd.Flags().StringVar(&in.FeatureName, "feature", "", "SDK feature to intercept")
	cmd.Flags().StringVar(&in.FeatureType, "type", "", "feature type: gate, config or experiment")
	cmd.Flags().StringVar(&in.ID, "id", "", "explicit override id")
	return cmd
}
