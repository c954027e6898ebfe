package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func tabsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tabs",
		Short: "List open tabs and whether they can be modified",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(true, func() error {
				tabs, err := a.browser.Tabs()
				if err != nil {
					return err
				}

				type row struct {
					Index     int    `json:"index"`
					ID        string `json:"id"`
					URL       string `json:"url"`
					Title     string `json:"title,omitempty"`
					CanInject bool   `json:"canInject"`
					Reason    string `json:"reason,omitempty"`
				}
				rows := make([]row, 0, len(tabs))
				for i, t := range tabs {
					target := a.engine.CanInject(t.ID).Target
					rows = append(rows, row{i, t.ID, t.URL, t.Title, target.CanInject, target.Reason})
				}
				if a.emit(rows) {
					return nil
				}
				if len(rows) == 0 {
					info("no open tabs")
					return nil
				}

				cells := make([][]string, 0, len(rows))
				for _, r := range rows {
					status := successStyle.Render("ok")
					if !r.CanInject {
						status = warnStyle.Render(r.Reason)
					}
					cells = append(cells, []string{strconv.Itoa(r.Index), truncate(r.URL, 60), truncate(r.Title, 30), status})
				}
				fmt.Println(table.New().
					Border(lipgloss.RoundedBorder()).
					BorderStyle(mutedStyle).
					Headers("#", "URL", "TITLE", "INJECT").
					Rows(cells...).
					String())
				return nil
			})
		},
	}
}
