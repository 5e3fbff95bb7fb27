package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository. The table is
// append-only; no update or delete statements exist here.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, record *entity.HistoryRecord) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO instance_history (instance_id, step_id, action, acting_user_id, comment, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.InstanceID,
		nullID(record.StepID),
		string(record.Action),
		record.ActingUserID,
		nullString(record.Comment),
		record.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return nil
}

// ListByInstanceID retrieves an instance's history ordered by timestamp
// ascending, insertion sequence breaking ties
func (r *HistoryRepository) ListByInstanceID(ctx context.Context, instanceID int64) ([]*entity.HistoryRecord, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `
		SELECT id, instance_id, step_id, action, acting_user_id, comment, timestamp
		FROM instance_history
		WHERE instance_id = ?
		ORDER BY timestamp ASC, id ASC
	`, instanceID)
	if err != nil {
		r.logger.Error("Failed to get history by instance ID", zap.Int64("instance_id", instanceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.HistoryRecord
	for rows.Next() {
		var record entity.HistoryRecord
		var action string
		var stepID sql.NullInt64
		var comment sql.NullString

		err := rows.Scan(
			&record.ID,
			&record.InstanceID,
			&stepID,
			&action,
			&record.ActingUserID,
			&comment,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		record.Action = entity.HistoryAction(action)
		record.Comment = comment.String
		if stepID.Valid {
			record.StepID = &stepID.Int64
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
