package model

import (
	"errors"
	"fmt"
)

// ErrorType classifies every error that leaves a component boundary.
type ErrorType int

const (
	UnknownError ErrorType = iota
	// TransportError covers network failures and timeouts. Callers may retry.
	TransportError
	// InvalidCatalogCredential means a catalog rejected (or was never given) its key.
	InvalidCatalogCredential
	ModpackNotFound
	ModNotInstalled
	NoCompatibleFile
	AlreadyInstalled
	LaunchAlreadyInProgress
	// IOError covers staging and other filesystem failures.
	IOError
	// ProvisionDegraded is informational: the launch continues as vanilla.
	ProvisionDegraded
	InvalidInput
)

var typeNames = map[ErrorType]string{
	UnknownError:             "unknown",
	TransportError:           "transport",
	InvalidCatalogCredential: "invalid-catalog-credential",
	ModpackNotFound:          "modpack-not-found",
	ModNotInstalled:          "mod-not-installed",
	NoCompatibleFile:         "no-compatible-file",
	AlreadyInstalled:         "already-installed",
	LaunchAlreadyInProgress:  "launch-already-in-progress",
	IOError:                  "io",
	ProvisionDegraded:        "provision-degraded",
	InvalidInput:             "invalid-input",
}

func (t ErrorType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("error-type(%d)", int(t))
}

// Error carries a user-facing Message plus the underlying cause.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

func NewTransportError(message string, err error) *Error {
	return NewError(TransportError, message, err)
}

func NewInvalidCatalogCredentialError(source Source, err error) *Error {
	return NewError(InvalidCatalogCredential,
		fmt.Sprintf("%s rejected the configured API key; check your catalog credentials", source), err)
}

func NewModpackNotFoundError(id string) *Error {
	return NewError(ModpackNotFound, fmt.Sprintf("modpack %q not found", id), nil)
}

func NewModNotInstalledError(id string) *Error {
	return NewError(ModNotInstalled, fmt.Sprintf("mod %q is not installed in this modpack", id), nil)
}

func NewNoCompatibleFileError(name, gameVersion string) *Error {
	return NewError(NoCompatibleFile, fmt.Sprintf("no file of %s is available for Minecraft %s", name, gameVersion), nil)
}

func NewAlreadyInstalledError(name string) *Error {
	return NewError(AlreadyInstalled, fmt.Sprintf("%s is already installed in this modpack", name), nil)
}

func NewLaunchAlreadyInProgressError(id string) *Error {
	return NewError(LaunchAlreadyInProgress, fmt.Sprintf("modpack %q is already being launched", id), nil)
}

func NewIOError(message string, err error) *Error {
	return NewError(IOError, message, err)
}

func NewInvalidInputError(message string, err error) *Error {
	return NewError(InvalidInput, message, err)
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err (or anything it wraps or joins) is an *Error of type t.
func Is(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Type == t {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if Is(inner, t) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return Is(x.Unwrap(), t)
	}
	return false
}

// TypeOf returns the ErrorType of the first *Error in err's chain.
func TypeOf(err error) ErrorType {
	if e, ok := AsError(err); ok {
		return e.Type
	}
	return UnknownError
}
