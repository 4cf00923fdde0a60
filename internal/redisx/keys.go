package redisx

import "time"

const (
	// Dedup relay processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
	// Cached dashboard metrics: dashboard:{hotel_id} -> Metrics JSON
	KeyDashboard = "dashboard:%s"
	// Pub/sub fan-out of raw document changes: docs:{collection}
	ChannelDocs = "docs:%s"
)

var (
	TTLDedup     = 48 * time.Hour
	TTLDashboard = 5 * time.Second
)
