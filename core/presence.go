package core

import "time"

type (
	// PresenceEntry is one participant currently announced on the board.
	PresenceEntry struct {
		Nickname      string `json:"nickname"`
		ParticipantID string `json:"id"`
		// JoinedAt is unix milliseconds, set by the registry at insertion time.
		JoinedAt int64 `json:"joinedAt"`
	}
)

// Expired reports whether the entry is older than ttl. An entry exactly ttl old is still live.
// Any int64 timestamp compares correctly, however old.
func (e PresenceEntry) Expired(now time.Time, ttl time.Duration) bool {
	return e.JoinedAt < now.UnixMilli()-ttl.Milliseconds()
}
