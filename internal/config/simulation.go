package config

import "time"

const (
	// Scanning
	DefaultScanDelayMin = 1 * time.Second
	DefaultScanDelayMax = 3 * time.Second
	DefaultNearbyLimit  = 20

	// Presence
	DefaultPresenceTTL           = 15 * time.Minute
	DefaultPresenceTouchInterval = 1 * time.Minute
	DefaultPresenceSweepInterval = 1 * time.Minute

	// Counterpart replies
	DefaultReplyDelayMin = 2 * time.Second
	DefaultReplyDelayMax = 5 * time.Second
	CannedReplyCount     = 8

	// Description location, jittered around a fixed point
	BaseLatitude   = 37.7749
	BaseLongitude  = -122.4194
	LocationJitter = 0.01
)

// DisplayNames is the pool new users draw their display name from.
var DisplayNames = []string{"Alex", "Sam", "Jordan", "Taylor", "Casey", "Riley", "Quinn", "Avery"}
