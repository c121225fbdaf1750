// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// ErrNotInteractive is returned when a prompt is needed but stdin is not a
// terminal.
var ErrNotInteractive = errors.New("confirmation required but stdin is not a terminal (use --force)")

// Interactive reports whether stdin is a terminal.
var Interactive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm prompts the user for yes/no confirmation. Empty input picks the
// default.
func Confirm(label string, defaultYes bool) (bool, error) {
	if !Interactive() {
		return false, ErrNotInteractive
	}

	defaultStr := "y/N"
	if defaultYes {
		defaultStr = "Y/n"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, defaultStr),
		IsConfirm: true,
	}

	result, err := p.Run()
	switch {
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case errors.Is(err, promptui.ErrAbort):
		// promptui reports "n" as ErrAbort
		return false, nil
	case err != nil && result == "":
		return defaultYes, nil
	case err != nil:
		return false, err
	}

	answer := strings.ToLower(result)
	return answer == "y" || answer == "yes", nil
}

// ConfirmWithForce returns true immediately if force is set, otherwise
// prompts with a "no" default.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

// ConfirmOverwrite asks before replacing path. A missing file needs no
// confirmation.
func ConfirmOverwrite(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	return ConfirmWithForce(fmt.Sprintf("%s already exists. Overwrite", path), force)
}
