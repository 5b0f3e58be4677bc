package database

import (
	"time"

	"gorm.io/datatypes"
)

// NodeRegistration records one registerMediaServer event this node sent to
// the signaling service. Write-only: nothing in the control plane reads
// this table back to make a routing decision, so a failed write never
// blocks registration itself.
type NodeRegistration struct {
	ID        string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	NodeID    string         `gorm:"index;type:varchar(64);not null"`
	Region    string         `gorm:"type:varchar(64)"`
	Ingress   bool           `gorm:"default:true"`
	Egress    bool           `gorm:"default:true"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;default:'{}';serializer:json"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index"`
}

// RoomAudit records room lifecycle events (createRouterGroup /
// destroyRouterGroup) for offline inspection.
type RoomAudit struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Room      string    `gorm:"index;type:varchar(255);not null"`
	Event     string    `gorm:"type:varchar(50);not null"`
	NodeID    string    `gorm:"index;type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// RelayAudit records inter-node pipe relay handshake events
// (storePipeRelay / createRelayProducer / connectPipeRelay).
type RelayAudit struct {
	ID            string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Room          string    `gorm:"index;type:varchar(255);not null"`
	IngressRouter string    `gorm:"index;type:varchar(64);not null"`
	EgressNode    string    `gorm:"index;type:varchar(64);not null"`
	Event         string    `gorm:"type:varchar(50);not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

// RecordNodeRegistration persists one registration event. Errors are
// returned to the caller to log, never to abort registration itself.
func RecordNodeRegistration(nodeID, region string, ingress, egress bool) error {
	if DB == nil {
		return nil
	}
	return DB.Create(&NodeRegistration{NodeID: nodeID, Region: region, Ingress: ingress, Egress: egress}).Error
}

// RecordRoomEvent persists a room lifecycle event.
func RecordRoomEvent(room, event, nodeID string) error {
	if DB == nil {
		return nil
	}
	return DB.Create(&RoomAudit{Room: room, Event: event, NodeID: nodeID}).Error
}

// RecordRelayEvent persists a relay handshake event.
func RecordRelayEvent(room, ingressRouter, egressNode, event string) error {
	if DB == nil {
		return nil
	}
	return DB.Create(&RelayAudit{Room: room, IngressRouter: ingressRouter, EgressNode: egressNode, Event: event}).Error
}

// RecentRoomEvents returns the most recent room audit rows, newest first.
func RecentRoomEvents(limit int) ([]RoomAudit, error) {
	var rows []RoomAudit
	result := DB.Order("created_at desc").Limit(limit).Find(&rows)
	return rows, result.Error
}

// RecentRelayEvents returns the most recent relay audit rows, newest first.
func RecentRelayEvents(limit int) ([]RelayAudit, error) {
	var rows []RelayAudit
	result := DB.Order("created_at desc").Limit(limit).Find(&rows)
	return rows, result.Error
}
