package main

import (
	"sort"

	"github.com/spf13/cobra"
)

func clearCmd(a *app) *cobra.Command {
	var registryOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every override",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(!registryOnly, func() error {
				tabID := ""
				if !registryOnly {
					var err error
					if tabID, err = a.tab(); err != nil {
						return err
					}
				}

				res := a.engine.ClearAllOverrides(cmd.Context(), tabID)
				if a.emit(res) {
					return check(res.Result)
				}
				if err := check(res.Result); err != nil {
					return err
				}
				success("cleared %d override(s)", res.Removed)

				ids := make([]string, 0, len(res.PageErrors))
				for id := range res.PageErrors {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					warn("%s: page cleanup failed: %s", id, res.PageErrors[id])
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&registryOnly, "registry-only", false, "only empty the registry; leave pages untouched")
	return cmd
}
