package replication

import (
	"encoding/json"
	"fmt"
)

// MessageMasterAnnouncement tags the heartbeat a master publishes
const MessageMasterAnnouncement = "master_announcement"

// MasterAnnouncement is published by the master every heartbeat interval
type MasterAnnouncement struct {
	MessageType string `json:"message_type"` // "master_announcement"
	SiteID      int    `json:"site_id"`
	Addr        string `json:"addr"`
	Seq         uint64 `json:"seq"`
	SentAt      int64  `json:"sent_at"` // Unix nanoseconds
}

func encodeAnnouncement(ann MasterAnnouncement) ([]byte, error) {
	ann.MessageType = MessageMasterAnnouncement
	return json.Marshal(ann)
}

func decodeAnnouncement(data []byte) (MasterAnnouncement, error) {
	var ann MasterAnnouncement
	if err := json.Unmarshal(data, &ann); err != nil {
		return ann, fmt.Errorf("decode announcement: %w", err)
	}
	if ann.MessageType != MessageMasterAnnouncement {
		return ann, fmt.Errorf("unexpected message type %q", ann.MessageType)
	}
	return ann, nil
}
