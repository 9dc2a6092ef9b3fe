package core

import (
	"os"
	"syscall"
)

// Process exit codes. Signal-initiated exits follow the Unix 128+signal
// convention so shell scripts can tell an interrupted run from a failed
// one.
const (
	// ExitCodeSuccess is a clean exit.
	ExitCodeSuccess = 0

	// ExitCodeError is a generation or configuration failure.
	ExitCodeError = 1

	// ExitCodeSIGINT is an exit forced by Ctrl+C (128 + 2).
	ExitCodeSIGINT = 130

	// ExitCodeSIGTERM is an exit forced by SIGTERM (128 + 15).
	ExitCodeSIGTERM = 143
)

// ExitCodeForSignal maps a termination signal to its exit code.
// Unknown signals map to ExitCodeError.
func ExitCodeForSignal(sig os.Signal) int {
	switch sig {
	case os.Interrupt, syscall.SIGINT:
		return ExitCodeSIGINT
	case syscall.SIGTERM:
		return ExitCodeSIGTERM
	default:
		return ExitCodeError
	}
}

// ExitCodeName returns a short description of an exit code for logs.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}

// IsSignalExit reports whether the exit code came from a signal.
func IsSignalExit(code int) bool {
	return code == ExitCodeSIGINT || code == ExitCodeSIGTERM
}
