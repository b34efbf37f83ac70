package session

import "fmt"

// Error kinds from spec.md §7. Typed structs with Error()/Unwrap() per
// SPEC_FULL.md §1's ambient-errors convention (connectivity/errors.go's
// ErrCircuitOpen style), not an error-codes package.

// UrlNotAllowedError — navigation blocked by domain policy; never retried.
type UrlNotAllowedError struct {
	URL    string
	Reason DenyReason
}

func (e *UrlNotAllowedError) Error() string {
	return fmt.Sprintf("session: url not allowed: %s (%s)", e.URL, e.Reason)
}

func ErrUrlNotAllowed(url string, reason DenyReason) error {
	return &UrlNotAllowedError{URL: url, Reason: reason}
}

// BrowserErrorKind — transient browser-driver failure.
type BrowserErrorKind struct {
	Op      string
	Wrapped error
}

func (e *BrowserErrorKind) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("session: browser error in %s: %v", e.Op, e.Wrapped)
	}
	return fmt.Sprintf("session: browser error in %s", e.Op)
}
func (e *BrowserErrorKind) Unwrap() error { return e.Wrapped }

func ErrBrowser(op string, wrapped error) error {
	return &BrowserErrorKind{Op: op, Wrapped: wrapped}
}

// PageUnresponsiveError — JS engine probe timed out.
type PageUnresponsiveError struct {
	PageID string
}

func (e *PageUnresponsiveError) Error() string {
	return fmt.Sprintf("session: page unresponsive: %s", e.PageID)
}

func ErrPageUnresponsive(pageID string) error {
	return &PageUnresponsiveError{PageID: pageID}
}

// ConnectionLostError — fatal; session marks uninitialized.
type ConnectionLostError struct {
	Wrapped error
}

func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("session: connection lost: %v", e.Wrapped)
}
func (e *ConnectionLostError) Unwrap() error { return e.Wrapped }

func ErrConnectionLost(wrapped error) error {
	return &ConnectionLostError{Wrapped: wrapped}
}

// ElementNotFoundError — a selector-map index did not resolve.
type ElementNotFoundError struct {
	Detail string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("session: element not found: %s", e.Detail)
}

func ErrElementNotFound(detail string) error {
	return &ElementNotFoundError{Detail: detail}
}

// AbortErrorKind — operation was cancelled via an abort token; always
// propagated, never swallowed (spec.md §5 "Cancellation semantics").
type AbortErrorKind struct{}

func (e *AbortErrorKind) Error() string { return "session: aborted" }

var ErrAbort error = &AbortErrorKind{}
