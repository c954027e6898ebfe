package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func sdkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sdk",
		Short: "Report whether the tab runs a flag-evaluation SDK",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(true, func() error {
				tabID, err := a.tab()
				if err != nil {
					return err
				}

				res := a.engine.SDKStatus(cmd.Context(), tabID)
				if a.emit(res) {
					return check(res.Result)
				}
				if err := check(res.Result); err != nil {
					return err
				}

				s := res.Status
				if !s.Present {
					warn("no evaluation SDK found; overrides will live in storage only")
					return nil
				}
				success("SDK present (active=%t)", s.Active)
				if len(s.Methods) > 0 {
					info("methods: %s", strings.Join(s.Methods, ", "))
				}
				if len(s.Interceptors) > 0 {
					info("intercepted: %s", strings.Join(s.Interceptors, ", "))
				}
				return nil
			})
		},
	}
}
