// Package components provides reusable UI components for the wt CLI.
//
// This file provides version information and header rendering.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Build information - these are set via ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// VersionString is the version with the short commit when known
func VersionString() string {
	versionInfo := fmt.Sprintf("v%s", Version)
	if GitCommit != "unknown" && len(GitCommit) > 7 {
		versionInfo += fmt.Sprintf(" (%s)", GitCommit[:7])
	}
	return versionInfo
}

// RenderHeader renders the CLI header with version information and the
// sandbox the CLI is talking to
func RenderHeader(target string) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true).
		MarginTop(1).
		MarginBottom(0).
		MarginLeft(2)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginLeft(2).
		MarginBottom(1)

	if target == "" {
		target = "not configured"
	}

	title := titleStyle.Render("Webtask Sandbox CLI")
	subtitle := subtitleStyle.Render(fmt.Sprintf("%s · %s", VersionString(), target))

	return fmt.Sprintf("%s\n%s\n", title, subtitle)
}
