package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
)

// Prompter asks the user how to resolve an install conflict.
type Prompter interface {
	IsInteractive() bool
	ConfirmForce(conflict *entities.CodeConflictError) (bool, error)
}

// TerminalPrompter prompts on the controlling terminal.
type TerminalPrompter struct{}

// NewTerminalPrompter creates a new TerminalPrompter.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ConfirmForce asks whether the plugin currently serving the code should be
// disabled.
func (p *TerminalPrompter) ConfirmForce(conflict *entities.CodeConflictError) (bool, error) {
	var force bool
	err := huh.NewConfirm().
		Title("Plugin code already in use").
		Description(fmt.Sprintf("%q is served by %s.\nDisable it and install %s?",
			conflict.Code.String(), conflict.Existing, conflict.Requested)).
		Affirmative("Disable and install").
		Negative("Cancel").
		Value(&force).
		Run()
	if err != nil {
		return false, err
	}
	return force, nil
}
