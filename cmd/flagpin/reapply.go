package main

import (
	"github.com/spf13/cobra"
)

func reapplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reapply",
		Short: "Re-apply every active override to the tab",
		Long: `Reapply pushes the registry to the page. Use it after a reload, or when the
page cleared its storage; the registry is never updated from the page.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(true, func() error {
				tabID, err := a.tab()
				if err != nil {
					return err
				}

				res := a.engine.Reapply(cmd.Context(), tabID)
				if a.emit(res) {
					return check(res.Result)
				}
				if err := check(res.Result); err != nil {
					return err
				}

				failed := 0
				for _, e := range res.Entries {
					if e.OK {
						success("%s", e.ID)
						continue
					}
					failed++
					warn("%s: %s", e.ID, e.Error)
				}
				if len(res.Entries) == 0 {
					info("no active overrides")
				} else if failed > 0 {
					info("%d of %d override(s) could not be applied", failed, len(res.Entries))
				}
				return nil
			})
		},
	}
}
