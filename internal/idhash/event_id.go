package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(sequence|type|initiator|from|to|amount|timestamp)
// Returns hex-encoded hash (64 characters). Two replays of the same journal
// produce identical IDs, letting indexers detect duplicates.
func ComputeEventID(
	sequence uint64,
	eventType string,
	initiator string,
	from string,
	to string,
	amount string,
	timestamp int64,
) string {
	data := fmt.Sprintf("%d|%s|%s|%s|%s|%s|%d",
		sequence,
		eventType,
		initiator,
		from,
		to,
		amount,
		timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
