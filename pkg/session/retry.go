package session

// RetryPolicy bounds re-driving a failed attempt inside one probe step.
// The zero value is NoRetry.
type RetryPolicy struct {
	MaxRetries int
}

// NoRetry makes every transient failure the terminal outcome of its step.
var NoRetry = RetryPolicy{}

// Attempts is the total number of tries for a unit of work (>= 1).
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return 1 + p.MaxRetries
}

// Disabled reports whether the policy never retries.
func (p RetryPolicy) Disabled() bool { return p.Attempts() == 1 }

// connectBudget is the number of failed server attempts tolerated before a
// Connect gives up: one pass over the resolved addresses per attempt.
func (p RetryPolicy) connectBudget(addrs int) int {
	if addrs < 1 {
		addrs = 1
	}
	return addrs * p.Attempts()
}
