package eventlog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is one published contract or ledger event.
type Record struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Sequence   uint64            `gorm:"uniqueIndex;not null" json:"sequence"`
	Type       string            `gorm:"index;not null" json:"type"`
	Payload    string            `gorm:"type:text;not null" json:"-"`
	Attributes map[string]string `gorm:"-" json:"attributes"`
	CreatedAt  time.Time         `gorm:"index" json:"createdAt"`
}

// TableName pins the table name independent of gorm's pluralisation rules.
func (Record) TableName() string { return "contract_events" }

// AfterFind decodes the stored attribute payload.
func (r *Record) AfterFind(*gorm.DB) error {
	if r.Payload == "" {
		return nil
	}
	return json.Unmarshal([]byte(r.Payload), &r.Attributes)
}

// AutoMigrate creates or updates the event log schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Record{})
}
