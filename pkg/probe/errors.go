package probe

import "errors"

var (
	// ErrNoReply marks a liveness command that was sent without getting a reply back.
	ErrNoReply = errors.New("no imok response")
	// ErrUnhealthyReply marks a liveness reply other than the expected literal.
	ErrUnhealthyReply = errors.New("unhealthy ruok reply")
)
