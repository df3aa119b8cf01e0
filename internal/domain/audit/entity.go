// internal/domain/audit/entity.go
package audit

import "time"

// Action is the kind of event an audit entry records.
type Action string

const (
	ActionCreate Action = "create"
	ActionRun    Action = "run"
)

// Entry is one audit-trail record. Entries are written best-effort alongside
// ledger writes and reconciliation runs; the core never depends on them
// succeeding.
type Entry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ActorID uint `gorm:"index" json:"actor_id"`

	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   string `gorm:"size:100;index" json:"entity_id"`

	Action      Action `gorm:"size:20" json:"action"`
	Description string `gorm:"size:255" json:"description"`

	// Before and after snapshots as JSON, "null" when absent.
	BeforeData string `gorm:"type:jsonb;default:'null'" json:"before_data"`
	AfterData  string `gorm:"type:jsonb;default:'null'" json:"after_data"`
}

// TableName overrides the GORM default
func (Entry) TableName() string {
	return "audit_entries"
}
