package ui

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// Confirm asks a yes/no question, defaulting to no. An aborted prompt counts
// as no.
func Confirm(title string) (bool, error) {
	var result bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&result).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return result, err
}
