package history

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/database/entities"
	"github.com/beepcard/beep-tap/internal/utils/idgen"
)

// PostgresRepository persists attempts via PostgreSQL using GORM.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a repository backed by the provided DB.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save upserts attempt.
func (r *PostgresRepository) Save(ctx context.Context, attempt *tap.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = idgen.NewAttemptID()
	}
	record := toEntity(attempt)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("save tap attempt: %w", err)
	}
	return nil
}

// Get loads one attempt.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*tap.Attempt, error) {
	var record entities.TapAttempt
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, tap.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tap attempt: %w", err)
	}
	return toDomain(record), nil
}

// List returns matching attempts, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter tap.AttemptFilter) ([]*tap.Attempt, error) {
	query := r.db.WithContext(ctx).Model(&entities.TapAttempt{})
	if filter.CardID != "" {
		query = query.Where("card_id = ?", filter.CardID)
	}
	if filter.Result != "" {
		query = query.Where("result = ?", string(filter.Result))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []entities.TapAttempt
	if err := query.Order("finished_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list tap attempts: %w", err)
	}
	out := make([]*tap.Attempt, 0, len(records))
	for _, rec := range records {
		out = append(out, toDomain(rec))
	}
	return out, nil
}

func toEntity(a *tap.Attempt) entities.TapAttempt {
	return entities.TapAttempt{
		ID:         a.ID,
		Generation: uint64(a.Generation),
		CardID:     a.CardID,
		Room:       a.Room,
		Result:     string(a.Result),
		Reason:     string(a.Reason),
		Detail:     a.Detail,
		StartedAt:  a.StartedAt,
		FinishedAt: a.FinishedAt,
	}
}

func toDomain(rec entities.TapAttempt) *tap.Attempt {
	return &tap.Attempt{
		ID:         rec.ID,
		Generation: tap.Generation(rec.Generation),
		CardID:     rec.CardID,
		Room:       rec.Room,
		Result:     tap.OutcomeKind(rec.Result),
		Reason:     tap.FailureReason(rec.Reason),
		Detail:     rec.Detail,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}
}
