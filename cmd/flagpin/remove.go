package main

import (
	"github.com/spf13/cobra"
)

func removeCmd(a *app) *cobra.Command {
	var registryOnly bool

	cmd := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove one override",
		Long: `Remove deletes the override from the registry and, unless --registry-only is
given, from the tab as well. A page-side failure is reported but never keeps the
entry in the registry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(!registryOnly, func() error {
				tabID := ""
				if !registryOnly {
					var err error
					if tabID, err = a.tab(); err != nil {
						return err
					}
				}

				res := a.engine.RemoveOverride(cmd.Context(), tabID, args[0])
				if a.emit(res) {
					return check(res.Result)
				}
				if err := check(res.Result); err != nil {
					return err
				}
				success("removed %s", res.Override.ID)
				if res.PageError != "" {
					warn("page cleanup failed: %s", res.PageError)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&registryOnly, "registry-only", false, "only remove the registry entry; leave pages untouched")
	return cmd
}
