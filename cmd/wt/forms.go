package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/mehreencs87/sandboxjs/async"
	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/ui/components"
)

var accent = components.Accent

// parsePairs parses "key=value" pairs separated by commas or ampersands.
// Blank input yields nil.
func parsePairs(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	pairs := map[string]string{}
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '&' }) {
		k, v, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%q is not key=value", strings.TrimSpace(field))
		}
		pairs[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return pairs, nil
}

func validatePairs(s string) error {
	_, err := parsePairs(s)
	return err
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func formTheme() *huh.Theme {
	theme := huh.ThemeCharm()
	theme.Focused.Base = theme.Focused.Base.BorderForeground(accent)
	theme.Focused.Title = theme.Focused.Title.Foreground(accent)
	theme.Focused.TextInput.Cursor = theme.Focused.TextInput.Cursor.Foreground(accent)
	theme.Focused.TextInput.Prompt = theme.Focused.TextInput.Prompt.Foreground(accent)
	return theme
}

// futureMsg carries a settled future into the Bubble Tea loop
type futureMsg[T any] struct {
	value T
	err   error
}

// awaitFuture turns a future into a command that delivers its result
func awaitFuture[T any](f *async.Future[T]) tea.Cmd {
	return func() tea.Msg {
		v, err := f.Await(context.Background())
		return futureMsg[T]{value: v, err: err}
	}
}
