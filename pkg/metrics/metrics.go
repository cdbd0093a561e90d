package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by flow (user|admin) and result
	// (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jansathi_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"flow", "result"},
	)

	// ChallengesIssued counts CAPTCHA and OTP challenges handed out.
	ChallengesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jansathi_challenges_issued_total",
			Help: "Total number of CAPTCHA/OTP challenges issued",
		},
		[]string{"kind"},
	)

	// VotesCast counts accepted policy votes by choice (yes|no).
	VotesCast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jansathi_votes_cast_total",
			Help: "Total number of policy votes recorded",
		},
		[]string{"choice"},
	)

	// VoteRejections counts vote attempts turned away and why
	// (already_voted|not_votable|not_found).
	VoteRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jansathi_vote_rejections_total",
			Help: "Total number of rejected policy votes",
		},
		[]string{"reason"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jansathi_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
