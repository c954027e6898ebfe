package main

import (
	"github.com/spf13/cobra"
)

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the tab can be modified and its page agent answers",
		Long: `Check runs the capability policy against the tab's URL and then probes the
page agent, installing it once if the first probe fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(true, func() error {
				tabID, err := a.tab()
				if err != nil {
					return err
				}

				target := a.engine.CanInject(tabID)
				res := a.engine.CheckChannel(cmd.Context(), tabID)
				if a.emit(map[string]any{"target": target.Target, "channel": res}) {
					return check(res.Result)
				}

				if !target.Target.CanInject {
					warn("%s: %s", target.Target.URL, target.Target.Reason)
					return check(res.Result)
				}
				if err := check(res.Result); err != nil {
					return err
				}
				success("%s is ready (agent %s, %d probe(s))", target.Target.Domain, res.Status.AgentVersion, res.Status.Attempts)
				if res.Status.InstallRequested {
					info("agent was installed by this check")
				}
				return nil
			})
		},
	}
}
