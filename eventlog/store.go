package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rentacar/core/events"
	"rentacar/core/types"
)

// MaxRecent caps the number of records returned by Recent.
const MaxRecent = 500

var ErrNilEvent = errors.New("eventlog: nil event")

// Store persists published events and fans them out to live subscribers.
type Store struct {
	db     *gorm.DB
	hub    *Hub
	logger *slog.Logger

	mu  sync.Mutex
	seq uint64
	now func() time.Time
}

// Open connects to dsn and migrates the schema. DSNs starting with
// postgres:// or postgresql:// use PostgreSQL; anything else is treated as a
// SQLite path or URI.
func Open(dsn string, log *slog.Logger) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("eventlog: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("eventlog: open: %w", err)
	}
	return New(db, log)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log *slog.Logger) (*Store, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("eventlog: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	var last struct{ Max uint64 }
	if err := db.Model(&Record{}).Select("COALESCE(MAX(sequence), 0) AS max").Scan(&last).Error; err != nil {
		return nil, fmt.Errorf("eventlog: load sequence: %w", err)
	}
	return &Store{
		db:     db,
		hub:    NewHub(),
		logger: log.With(slog.String("component", "eventlog")),
		seq:    last.Max,
		now:    time.Now,
	}, nil
}

// Hub returns the live fan-out for appended records.
func (s *Store) Hub() *Hub { return s.hub }

// Emit implements events.Emitter. Events without an attribute payload are
// ignored; persistence failures are logged since emitters cannot fail.
func (s *Store) Emit(evt events.Event) {
	payload, ok := evt.(events.Payload)
	if !ok {
		return
	}
	if _, err := s.Append(context.Background(), payload.Event()); err != nil {
		s.logger.Error("persist event", slog.String("type", evt.EventType()), slog.Any("error", err))
	}
}

// Append stores evt with the next sequence number and publishes it.
func (s *Store) Append(ctx context.Context, evt *types.Event) (*Record, error) {
	if evt == nil {
		return nil, ErrNilEvent
	}
	attrs := evt.Clone().Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("eventlog: encode attributes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &Record{
		ID:         uuid.New(),
		Sequence:   s.seq + 1,
		Type:       evt.Type,
		Payload:    string(encoded),
		Attributes: attrs,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("eventlog: insert: %w", err)
	}
	s.seq = rec.Sequence
	s.hub.Publish(*rec)
	return rec, nil
}

// Recent returns up to limit records, newest first. An empty eventType
// matches every type.
func (s *Store) Recent(ctx context.Context, eventType string, limit int) ([]Record, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	query := s.db.WithContext(ctx).Order("sequence DESC").Limit(limit)
	if eventType = strings.TrimSpace(eventType); eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	var records []Record
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("eventlog: query: %w", err)
	}
	return records, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
