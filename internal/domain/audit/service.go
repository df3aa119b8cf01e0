// internal/domain/audit/service.go
package audit

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Recorder persists audit entries. Failures are logged and swallowed so a
// broken audit trail never aborts the business write it describes.
type Recorder struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(db *gorm.DB, logger *logrus.Logger) *Recorder {
	return &Recorder{
		db:     db,
		logger: logger,
	}
}

// RecordOptions describes one audit event.
type RecordOptions struct {
	ActorID     uint
	EntityType  string
	EntityID    string
	Action      Action
	Description string
	Before      any
	After       any
}

// Record writes an audit entry, best-effort.
func (r *Recorder) Record(opts RecordOptions) {
	entry := Entry{
		ActorID:     opts.ActorID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  marshalOrNull(opts.Before),
		AfterData:   marshalOrNull(opts.After),
	}

	if err := r.db.Create(&entry).Error; err != nil {
		r.logger.WithFields(logrus.Fields{
			"entity_type": opts.EntityType,
			"entity_id":   opts.EntityID,
			"action":      opts.Action,
		}).WithError(err).Warn("failed to write audit entry")
	}
}

// marshalOrNull renders v as JSON, "null" when absent or unmarshalable, so
// the jsonb column always receives valid JSON.
func marshalOrNull(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
