// Package history stores finished calls in the local database.
package history

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crm-portal/portal-agent/internal/call"
	"github.com/crm-portal/portal-agent/internal/db/models"
)

const (
	callIDQueryPattern = "call_id = ?"
	newestFirst        = "finished_at desc, id desc"
)

var (
	// ErrCallRecordNotFound is returned when a call is not in the history.
	ErrCallRecordNotFound = errors.New("call record not found")
	// ErrCallIDInvalid is returned for a call id <= 0.
	ErrCallIDInvalid = errors.New("call id must be greater than 0")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// FromSession builds the record of a finished session as seen by userID.
func FromSession(s *call.Session, userID int64, finishedAt time.Time) models.CallRecord {
	rec := models.CallRecord{
		CallID:      s.ID,
		RoomName:    s.RoomName,
		CallType:    string(s.CallType),
		Status:      string(s.Status),
		InitiatorID: s.InitiatorID,
		RecipientID: s.RecipientID,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
		FinishedAt:  finishedAt.UTC(),
	}

	if s.InitiatorID == userID {
		rec.Direction = string(call.DirectionOutgoing)
		rec.PeerID = s.RecipientID
	} else {
		rec.Direction = string(call.DirectionIncoming)
		rec.PeerID = s.InitiatorID
	}

	if s.DurationSeconds != nil {
		rec.DurationSeconds = *s.DurationSeconds
	} else if s.StartedAt != nil && s.EndedAt != nil {
		rec.DurationSeconds = int(s.EndedAt.Sub(*s.StartedAt).Seconds())
	}

	return rec
}

// Record inserts rec or, when the call is already recorded, overwrites it.
func Record(db *gorm.DB, rec *models.CallRecord) error {
	if db == nil {
		return ErrDBNil
	}
	if rec.CallID <= 0 {
		return ErrCallIDInvalid
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "call_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"room_name", "call_type", "status", "direction", "peer_id",
			"initiator_id", "recipient_id", "started_at", "ended_at",
			"duration_seconds", "finished_at",
		}),
	}).Create(rec).Error
}

// Get retrieves the record of a call.
func Get(db *gorm.DB, callID int64) (*models.CallRecord, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if callID <= 0 {
		return nil, ErrCallIDInvalid
	}

	var rec models.CallRecord
	result := db.Where(callIDQueryPattern, callID).First(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCallRecordNotFound
		}
		return nil, result.Error
	}

	return &rec, nil
}

// List returns the newest records first. limit <= 0 returns all of them.
func List(db *gorm.DB, limit int) ([]models.CallRecord, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	query := db.Order(newestFirst)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.CallRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// ListWithPeer returns the newest records of calls with peerID.
func ListWithPeer(db *gorm.DB, peerID int64, limit int) ([]models.CallRecord, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	query := db.Where("peer_id = ?", peerID).Order(newestFirst)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.CallRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// Delete removes the record of a call.
func Delete(db *gorm.DB, callID int64) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Where(callIDQueryPattern, callID).Delete(&models.CallRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCallRecordNotFound
	}

	return nil
}

// Purge removes records finished before cutoff and returns how many were removed.
func Purge(db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	result := db.Where("finished_at < ?", cutoff.UTC()).Delete(&models.CallRecord{})

	return result.RowsAffected, result.Error
}

// Trim keeps the newest keep records and removes the rest.
func Trim(db *gorm.DB, keep int) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}
	if keep <= 0 {
		return 0, nil
	}

	newest := db.Model(&models.CallRecord{}).Select("id").Order(newestFirst).Limit(keep)
	result := db.Where("id NOT IN (?)", newest).Delete(&models.CallRecord{})

	return result.RowsAffected, result.Error
}
