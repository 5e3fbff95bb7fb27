package service

import (
	"context"
	"fmt"

	"github.com/caseflow/caseflow/internal/application/port"
	"github.com/caseflow/caseflow/internal/domain/entity"
	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// HistoryService exposes the audit trail of an instance
type HistoryService interface {
	GetHistory(ctx context.Context, instanceID int64) ([]*entity.HistoryRecord, error)
}

type historyService struct {
	instanceRepo port.InstanceRepository
	historyRepo  port.HistoryRepository
	logger       Logger
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(instanceRepo port.InstanceRepository, historyRepo port.HistoryRepository, logger Logger) HistoryService {
	return &historyService{
		instanceRepo: instanceRepo,
		historyRepo:  historyRepo,
		logger:       logger,
	}
}

// GetHistory retrieves an instance's history ordered by timestamp ascending
func (s *historyService) GetHistory(ctx context.Context, instanceID int64) ([]*entity.HistoryRecord, error) {
	instance, err := s.instanceRepo.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: workflow instance %d", workflow.ErrNotFound, instanceID)
	}

	records, err := s.historyRepo.ListByInstanceID(ctx, instanceID)
	if err != nil {
		s.logger.Error("Failed to load history", "error", err, "instance_id", instanceID)
		return nil, fmt.Errorf("load history: %w", err)
	}
	return records, nil
}

var _ HistoryService = (*historyService)(nil)
