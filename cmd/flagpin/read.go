package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func readCmd(a *app) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "read <key>",
		Short: "Read a storage value or cookie from the tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(true, func() error {
				tabID, err := a.tab()
				if err != nil {
					return err
				}

				res := a.engine.ReadValue(cmd.Context(), tabID, kind, args[0])
				if a.emit(res) {
					return check(res.Result)
				}
				if err := check(res.Result); err != nil {
					return err
				}
				if res.Value == nil {
					info("%s is not set", args[0])
					return nil
				}
				fmt.Println(*res.Value)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "localStorage", "storage kind: localStorage, sessionStorage or cookie")
	return cmd
}
