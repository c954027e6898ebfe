package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/entrhq/flagpin/pkg/engine"
	"github.com/entrhq/flagpin/pkg/types"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA") // Primary accent
	mintGreen  = lipgloss.Color("#A8E6CF") // Success states
	amber      = lipgloss.Color("#FDE68A") // Warnings
	errorRed   = lipgloss.Color("#F87171") // Failures
	mutedGray  = lipgloss.Color("#6B7280") // Secondary text
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(salmonPink).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(mintGreen)
	warnStyle    = lipgloss.NewStyle().Foreground(amber)
	errorStyle   = lipgloss.NewStyle().Foreground(errorRed)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedGray)
)

func success(format string, args ...any) {
	fmt.Println(successStyle.Render("✓ " + fmt.Sprintf(format, args...)))
}

func warn(format string, args ...any) {
	fmt.Println(warnStyle.Render("⚠ " + fmt.Sprintf(format, args...)))
}

func info(format string, args ...any) {
	fmt.Println(mutedStyle.Render("  " + fmt.Sprintf(format, args...)))
}

// emit prints v as JSON when --json is set and reports whether it did.
func (a *app) emit(v any) bool {
	if !a.jsonOutput {
		return false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
	return true
}

// check turns a failed engine result into a command error with its hint.
func check(res engine.Result) error {
	if res.OK {
		return nil
	}
	msg := fmt.Sprintf("%s [%s]", res.Error, res.Kind)
	if res.Hint != "" {
		msg += "\n  " + res.Hint
	}
	return errors.New(msg)
}

func overridesTable(list []types.Override) string {
	rows := make([][]string, 0, len(list))
	for _, o := range list {
		feature := ""
		if o.Intercepts() {
			feature = fmt.Sprintf("%s (%s)", o.FeatureName, o.FeatureType)
		}
		rows = append(rows, []string{o.ID, string(o.Kind), o.Key, truncate(o.Value, 40), feature})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("ID", "KIND", "KEY", "VALUE", "FEATURE").
		Rows(rows...).
		String()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
