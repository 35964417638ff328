package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentity is matched by errors raised when two widgets of one run share an identity.
	ErrDuplicateIdentity = errors.New("duplicate widget identity")

	// ErrConfiguration is matched by errors caused by invalid script or widget configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrIllegalState is matched by errors that indicate a broken internal invariant.
	ErrIllegalState = errors.New("illegal state")

	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCacheMiss is returned by caches that need to distinguish a miss from a nil value.
	ErrCacheMiss = errors.New("cache miss")
)

// WidgetRef describes one widget instance in error messages.
type WidgetRef struct {
	TypeName    string
	InternalKey string
	UserKey     string
	Container   string
}

func (r WidgetRef) String() string {
	if r.UserKey != "" {
		return fmt.Sprintf("%s(key=%q, user_key=%q, container=%s)", r.TypeName, r.InternalKey, r.UserKey, r.Container)
	}
	return fmt.Sprintf("%s(key=%q, container=%s)", r.TypeName, r.InternalKey, r.Container)
}

// DuplicateIdentityError reports two widgets of the same run sharing an internal key or user key.
type DuplicateIdentityError struct {
	First  WidgetRef
	Second WidgetRef
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate widget identity: %s collides with %s; "+
		"widgets built with identical parameters need a distinct key", e.Second, e.First)
}

// Is makes errors.Is(err, ErrDuplicateIdentity) match.
func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}

// ConfigurationError reports an invalid configuration of containers, keys or forms.
type ConfigurationError struct {
	Msg string
}

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// Is makes errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// IllegalStateError reports an implementation bug, such as a reentrant run.
type IllegalStateError struct {
	Msg string
}

// NewIllegalStateError formats an IllegalStateError.
func NewIllegalStateError(format string, args ...any) *IllegalStateError {
	return &IllegalStateError{Msg: fmt.Sprintf(format, args...)}
}

func (e *IllegalStateError) Error() string {
	return "illegal state: " + e.Msg
}

// Is makes errors.Is(err, ErrIllegalState) match.
func (e *IllegalStateError) Is(target error) bool {
	return target == ErrIllegalState
}

// BreakAndRerun stops the current run early and asks the driver to start a new one.
// It is control flow, not a failure.
type BreakAndRerun struct {
	// OnBreak runs after the interrupted run has ended and before the next run starts.
	OnBreak func()
}

func (b *BreakAndRerun) Error() string {
	return "break and rerun"
}

// Rerun returns a BreakAndRerun value for scripts to return.
func Rerun(onBreak func()) error {
	return &BreakAndRerun{OnBreak: onBreak}
}

// AsBreak extracts a BreakAndRerun from an error chain.
func AsBreak(err error) (*BreakAndRerun, bool) {
	var b *BreakAndRerun
	if errors.As(err, &b) {
		return b, true
	}
	return nil, false
}
