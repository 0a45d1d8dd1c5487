package tui

import (
	"github.com/kshimizu/anitrack/internal/cache"
	"github.com/kshimizu/anitrack/internal/session"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SessionChangedMsg signals a session lifecycle transition
type SessionChangedMsg struct {
	State session.State
}

// ResourceUpdatedMsg carries a fresh cache snapshot for a subscribed view
type ResourceUpdatedMsg struct {
	Entry cache.Entry
}

// LoginResultMsg signals the outcome of a login or register attempt
type LoginResultMsg struct {
	Err error
}

// MutationDoneMsg signals the outcome of a write against the backend
type MutationDoneMsg struct {
	Context string
	Err     error
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}
