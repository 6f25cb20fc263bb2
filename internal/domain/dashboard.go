package domain

// Dashboard is the member home summary.
type Dashboard struct {
	PendingInterests int           `json:"pending_interests"`
	ActiveMatches    int           `json:"active_matches"`
	UnreadMessages   int           `json:"unread_messages"`
	PendingRequests  int           `json:"pending_requests"`
	RecentVisitors   []Interaction `json:"recent_visitors"`
	RecentActivity   []Interaction `json:"recent_activity"`
}
