package algo

import "time"

// refinementDeadline picks the earlier of the option budget and the context deadline.
func refinementDeadline(limit time.Duration, ctxDeadline time.Time, hasCtxDeadline bool) (time.Time, bool) {
	if limit == 0 {
		limit = DEFAULT_TIME_LIMIT
	}
	var deadline time.Time
	ok := false
	if limit > 0 {
		deadline = time.Now().Add(limit)
		ok = true
	}
	if hasCtxDeadline && (!ok || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
		ok = true
	}
	return deadline, ok
}

func maxNodes(limit int) int {
	if limit == 0 {
		return DEFAULT_MAX_NODES
	}
	return limit
}
