// Package browser wraps the browser-automation collaborator used by the probes.
package browser

import (
	"context"
	"errors"
)

// ErrElementNotFound is returned by Session.Attribute when the loaded page has
// no element with the requested id.
var ErrElementNotFound = errors.New("element not found")

// Driver opens browser sessions navigated to a URL.
type Driver interface {
	// Open navigates a fresh page to url and waits for it to load.
	// The caller owns the returned session and must Close it.
	Open(ctx context.Context, url string) (Session, error)

	// Close shuts the browser down
	Close() error
}

// Session is one opened page.
type Session interface {
	// BodyText returns the currently rendered visible text of the page body
	BodyText(ctx context.Context) (string, error)

	// Attribute returns the resolved DOM property name of the element with the
	// given id, or the raw attribute when the property is not a string.
	// ok is false when the attribute is absent; a missing element yields
	// ErrElementNotFound.
	Attribute(ctx context.Context, elementID, name string) (value string, ok bool, err error)

	// Dialogs returns the messages of JavaScript dialogs opened so far
	Dialogs() []string

	// Close releases the page. Calls after the first are no-ops.
	Close() error
}
