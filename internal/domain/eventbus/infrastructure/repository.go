package infrastructure

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"tensosense-server-go/internal/domain/eventbus/repository"
	"tensosense-server-go/internal/platform/errors"
	"tensosense-server-go/internal/platform/storage"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a gorm-backed event repository.
func NewEventRepository(db *gorm.DB) repository.EventRepository {
	return &eventRepository{
		db: db,
	}
}

func (r *eventRepository) Store(ctx context.Context, event repository.Event) error {
	var data []byte
	if len(event.Data) > 0 {
		encoded, err := sonic.Marshal(event.Data)
		if err != nil {
			return errors.Wrap(errors.KindStorage, "event.store.marshal", "failed to marshal event data", err)
		}
		data = encoded
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	record := &storage.DeviceEventRecord{
		EventType: event.EventType,
		SessionID: event.SessionID,
		Username:  event.Username,
		Data:      string(data),
		CreatedAt: createdAt,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "event.store.create", "failed to store event", err)
	}
	return nil
}

func (r *eventRepository) FindBySessionID(ctx context.Context, sessionID string) ([]repository.Event, error) {
	var records []storage.DeviceEventRecord
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event.find.session", "failed to find events by session ID", err)
	}

	return convertRecords(records)
}

func (r *eventRepository) FindRecent(ctx context.Context, eventType string, limit int) ([]repository.Event, error) {
	var records []storage.DeviceEventRecord
	query := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&records).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event.find.recent", "failed to find recent events", err)
	}

	return convertRecords(records)
}

func (r *eventRepository) DeleteOldEvents(ctx context.Context, beforeTime time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", beforeTime).
		Delete(&storage.DeviceEventRecord{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.KindStorage, "event.delete.old", "failed to delete old events", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *eventRepository) GetEventStats(ctx context.Context) (map[string]int64, error) {
	var stats []struct {
		EventType string
		Count     int64
	}

	if err := r.db.WithContext(ctx).
		Model(&storage.DeviceEventRecord{}).
		Select("event_type, count(*) as count").
		Group("event_type").
		Scan(&stats).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event.stats", "failed to get event stats", err)
	}

	result := make(map[string]int64, len(stats))
	for _, stat := range stats {
		result[stat.EventType] = stat.Count
	}
	return result, nil
}

func convertRecords(records []storage.DeviceEventRecord) ([]repository.Event, error) {
	events := make([]repository.Event, len(records))

	for i, rec := range records {
		var data map[string]any
		if rec.Data != "" {
			if err := sonic.UnmarshalString(rec.Data, &data); err != nil {
				return nil, errors.Wrap(errors.KindStorage, "event.convert.unmarshal", "failed to unmarshal event data", err)
			}
		}

		events[i] = repository.Event{
			ID:        strconv.FormatUint(uint64(rec.ID), 10),
			EventType: rec.EventType,
			SessionID: rec.SessionID,
			Username:  rec.Username,
			Data:      data,
			CreatedAt: rec.CreatedAt,
		}
	}

	return events, nil
}
