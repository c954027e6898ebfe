package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(false, func() error {
				res := a.engine.ListActiveOverrides(cmd.Context())
				if err := check(res.Result); err != nil {
					return err
				}
				if a.emit(res.Overrides) {
					return nil
				}
				if len(res.Overrides) == 0 {
					info("no active overrides")
					return nil
				}
				fmt.Println(overridesTable(res.Overrides))
				return nil
			})
		},
	}
}
