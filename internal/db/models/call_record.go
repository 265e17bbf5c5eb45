// Package models contains database model definitions.
package models

import "time"

// CallRecord is one finished call kept in the local history.
type CallRecord struct {
	ID              uint64     `gorm:"primaryKey"                json:"-"`
	CallID          int64      `gorm:"uniqueIndex;not null"      json:"call_id"`
	RoomName        string     `gorm:"size:255"                  json:"room_name"`
	CallType        string     `gorm:"size:16"                   json:"call_type"`
	Status          string     `gorm:"size:16;index"             json:"status"`
	Direction       string     `gorm:"size:16"                   json:"direction"`
	PeerID          int64      `gorm:"index"                     json:"peer_id"`
	InitiatorID     int64      `json:"initiator_id"`
	RecipientID     int64      `json:"recipient_id"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	FinishedAt      time.Time  `gorm:"index;not null"            json:"finished_at"`
	CreatedAt       time.Time  `json:"-"`
}
