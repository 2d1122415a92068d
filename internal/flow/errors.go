// Package flow implements the three LNURL state machines: channel
// request (LUD-02), withdraw (LUD-03), and auth (LUD-04). Each flow
// mints a single-use k1 at offer time and redeems it at callback time
// before delegating the privileged action to the node.
package flow

import "fmt"

// Kind classifies a flow failure for the transport layer.
type Kind int

const (
	// KindInvalidInput covers malformed client parameters.
	KindInvalidInput Kind = iota + 1
	// KindInvalidToken covers unknown and already-redeemed k1 values.
	// The two cases are deliberately indistinguishable to the caller.
	KindInvalidToken
	// KindUpstream covers node call failures and timeouts.
	KindUpstream
	// KindUnauthorized covers an explicit signature verification failure.
	KindUnauthorized
)

// Error is the only error type that crosses the flow boundary. Reason is
// a fixed protocol string safe to show to clients; the wrapped cause
// stays server-side.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.cause)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.cause }

func invalidInput(reason string) *Error {
	return &Error{Kind: KindInvalidInput, Reason: reason}
}

func invalidToken() *Error {
	return &Error{Kind: KindInvalidToken, Reason: "invalid or expired k1"}
}

func upstream(cause error) *Error {
	return &Error{Kind: KindUpstream, Reason: "node request failed", cause: cause}
}

func unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Reason: "signature verification failed"}
}
