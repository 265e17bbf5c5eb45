package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/crm-portal/portal-agent/internal/call"
	"github.com/crm-portal/portal-agent/internal/db/controller/history"
	"github.com/crm-portal/portal-agent/internal/db/models"
)

const historyQueueSize = 64

// historyWriter stores every call that leaves the controller. The listener
// only queues the record; Run writes it outside the controller's delivery.
type historyWriter struct {
	db      *gorm.DB
	profile call.ProfileContext
	now     func() time.Time
	records chan models.CallRecord
}

func newHistoryWriter(db *gorm.DB, profile call.ProfileContext, now func() time.Time) *historyWriter {
	return &historyWriter{
		db:      db,
		profile: profile,
		now:     now,
		records: make(chan models.CallRecord, historyQueueSize),
	}
}

// Listener queues finished calls. A full queue drops the record.
func (w *historyWriter) Listener() call.Listener {
	return func(ch call.Change) {
		if ch.Finished == nil {
			return
		}

		me, _ := w.profile.CurrentUser()
		rec := history.FromSession(ch.Finished, me, w.now())

		select {
		case w.records <- rec:
		default:
			log.Warn().Int64("call_id", rec.CallID).Msg("call history queue full, record dropped")
		}
	}
}

// Run writes queued records until ctx is done and then flushes what is left.
func (w *historyWriter) Run(ctx context.Context) {
	for {
		select {
		case rec := <-w.records:
			w.write(rec)
		case <-ctx.Done():
			for {
				select {
				case rec := <-w.records:
					w.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (w *historyWriter) write(rec models.CallRecord) {
	if err := history.Record(w.db, &rec); err != nil {
		log.Error().Err(err).Int64("call_id", rec.CallID).Msg("failed to record call history")
		return
	}

	log.Debug().Int64("call_id", rec.CallID).Str("status", rec.Status).Msg("call recorded")
}

// purgeHistory removes records older than retentionDays and then everything
// but the newest keep records. 0 disables the respective limit.
func purgeHistory(db *gorm.DB, retentionDays, keep int, now time.Time) {
	if retentionDays > 0 {
		removed, err := history.Purge(db, now.AddDate(0, 0, -retentionDays))
		if err != nil {
			log.Error().Err(err).Msg("failed to purge call history")
			return
		}

		if removed > 0 {
			log.Info().Int64("removed", removed).Int("retention_days", retentionDays).Msg("call history purged")
		}
	}

	if keep > 0 {
		removed, err := history.Trim(db, keep)
		if err != nil {
			log.Error().Err(err).Msg("failed to trim call history")
			return
		}

		if removed > 0 {
			log.Info().Int64("removed", removed).Int("keep", keep).Msg("call history trimmed")
		}
	}
}
