package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spboyer/syndi/internal/orchestration"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0 // Everything ran
	ExitFailed  = 1 // A session failed or was refused
	ExitError   = 2 // Configuration or runtime error
)

// SessionFailureError indicates that the command ran, but one or more
// sessions did not complete.
type SessionFailureError struct {
	Message string
}

func (e *SessionFailureError) Error() string {
	return e.Message
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var failure *SessionFailureError
	var refused *orchestration.PreflightError
	if errors.As(err, &failure) || errors.As(err, &refused) {
		return ExitFailed
	}
	return ExitError
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
