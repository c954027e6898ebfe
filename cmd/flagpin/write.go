package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/flagpin/pkg/engine"
)

func writeCmd(a *app) *cobra.Command {
	var in engine.Input

	cmd := &cobra.Command{
		Use:   "write <key> <value>",
		Short: "Write a value into the tab without recording an override",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Key, in.Value = args[0], args[1]
			return a.run(true, func() error {
				tabID, err := a.tab()
				if err != nil {
					return err
				}

				res := a.engine.WriteValue(cmd.Context(), tabID, in)
				if a.emit(res) {
					return check(res)
				}
				if err := check(res); err != nil {
					return err
				}
				success("wrote %s", in.Key)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&in.Kind, "kind", "k", "localStorage", "storage kind: localStorage, sessionStorage or cookie")
	cmd.Flags().StringVar(&in.Domain, "domain", "", "cookie domain")
	cmd.Flags().StringVar(&in.Path, "path", "", "cookie path (default /)")
	return cmd
}
