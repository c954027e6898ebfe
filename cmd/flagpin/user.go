package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func userCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Show the SDK user and session of the tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(true, func() error {
				tabID, err := a.tab()
				if err != nil {
					return err
				}

				res := a.engine.UserInfo(cmd.Context(), tabID)
				if a.emit(res) {
					return check(res.Result)
				}
				if err := check(res.Result); err != nil {
					return err
				}

				fmt.Println(headerStyle.Render(res.Info.Origin))
				if !res.Info.SDKPresent {
					warn("no evaluation SDK found on this page")
					return nil
				}
				if res.Info.StableID != "" {
					info("stableID: %s", res.Info.StableID)
				}
				keys := make([]string, 0, len(res.Info.User))
				for k := range res.Info.User {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					info("%s: %v", k, res.Info.User[k])
				}
				return nil
			})
		},
	}
}
