package realtime

// Named realtime streams used across the portal.
const (
	// StreamVotes carries live vote events to admin dashboards.
	StreamVotes = "policy.votes"
	// StreamApplications carries application submissions and status changes.
	StreamApplications = "policy.applications"
)
