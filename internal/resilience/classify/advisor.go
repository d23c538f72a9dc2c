package classify

// Strategy is the advised recovery path for a classified failure.
type Strategy string

const (
	// StrategyRetry: transient, re-attempt with backoff.
	StrategyRetry Strategy = "retry"
	// StrategyRefresh: local view is stale, re-read authoritative state.
	StrategyRefresh Strategy = "refresh"
	// StrategyRedirect: session is unusable, hand off to login.
	StrategyRedirect Strategy = "redirect"
	// StrategyManual: a human has to look at it.
	StrategyManual Strategy = "manual"
)

// Advise maps a classification to a recovery strategy. Pure function of
// the classification.
func Advise(c Classification) Strategy {
	switch c.Type {
	case TypeNetwork, TypeServer:
		return StrategyRetry
	case TypeDataConsistency, TypeNotFound:
		return StrategyRefresh
	case TypeAuthentication:
		return StrategyRedirect
	default:
		// validation, authorization, unknown
		return StrategyManual
	}
}
