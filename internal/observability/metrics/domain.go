package metrics

import "time"

// PaymentVerification records a payment verification outcome.
func PaymentVerification(currency, result string) {
	if !enabled {
		return
	}
	paymentVerificationTotal.WithLabelValues(currency, result).Inc()
}

// SubscriptionChange records an admin activation or deactivation.
func SubscriptionChange(action, status string) {
	if !enabled {
		return
	}
	subscriptionChangeTotal.WithLabelValues(action, status).Inc()
}

// UpstreamFetch records one call to a third-party API.
func UpstreamFetch(source, result string, duration time.Duration) {
	if !enabled {
		return
	}
	upstreamFetchTotal.WithLabelValues(source, result).Inc()
	upstreamFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RateLimited records a request rejected by a policy.
func RateLimited(policy string) {
	if !enabled {
		return
	}
	rateLimitedTotal.WithLabelValues(policy).Inc()
}

// SwapPathsBuilt records the size of a comparison result.
func SwapPathsBuilt(n int) {
	if !enabled {
		return
	}
	swapPathsBuilt.Observe(float64(n))
}

// GasFeedClients sets the number of connected gas feed clients.
func GasFeedClients(n int) {
	if !enabled {
		return
	}
	gasFeedClients.Set(float64(n))
}
