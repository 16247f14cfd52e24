package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainIssue "roomkey/internal/domain/cardissue"
	"roomkey/internal/infrastructure/database/postgres/models"
)

// CardIssueRepository implements domain cardissue.Repository.
type CardIssueRepository struct {
	db *DB
}

// NewCardIssueRepository creates a new card-issue repository.
func NewCardIssueRepository(db *DB) domainIssue.Repository {
	return &CardIssueRepository{db: db}
}

func (r *CardIssueRepository) Create(ctx context.Context, issue *domainIssue.CardIssue) error {
	issue.CreatedAt = time.Now()
	issue.UpdatedAt = issue.CreatedAt

	dbModel, err := models.ToCardIssueModel(issue)
	if err != nil {
		return err
	}

	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to create card issue: %w", err)
	}

	issue.ID = dbModel.ID
	return nil
}

func (r *CardIssueRepository) GetByID(ctx context.Context, issueID uuid.UUID) (*domainIssue.CardIssue, error) {
	var dbModel models.CardIssueModel
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", issueID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainIssue.ErrIssueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card issue: %w", err)
	}

	return models.ToCardIssueEntity(&dbModel)
}

func (r *CardIssueRepository) List(ctx context.Context, filter *domainIssue.Filter) ([]*domainIssue.CardIssue, int64, error) {
	var dbModels []models.CardIssueModel
	var total int64

	db := r.db.DB.WithContext(ctx).Model(&models.CardIssueModel{})
	if filter != nil {
		if filter.HotelID != nil {
			db = db.Where("hotel_id = ?", *filter.HotelID)
		}
		if filter.AgentID != nil {
			db = db.Where("agent_id = ?", *filter.AgentID)
		}
		if filter.Status != nil {
			db = db.Where("status = ?", string(*filter.Status))
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count card issues: %w", err)
	}

	limit := 50
	offset := 0
	if filter != nil {
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		if filter.Offset > 0 {
			offset = filter.Offset
		}
	}

	err := db.Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&dbModels).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list card issues: %w", err)
	}

	issues := make([]*domainIssue.CardIssue, 0, len(dbModels))
	for i := range dbModels {
		issue, err := models.ToCardIssueEntity(&dbModels[i])
		if err != nil {
			return nil, 0, err
		}
		issues = append(issues, issue)
	}
	return issues, total, nil
}

// UpdateStatus applies a guarded status transition. The WHERE clause pins
// the expected current status, and when an agent claim is part of the
// update it additionally requires the issue to be unclaimed or already
// claimed by the same agent, so no two agents can own one issue.
func (r *CardIssueRepository) UpdateStatus(ctx context.Context, issueID uuid.UUID, expected domainIssue.IssueStatus, update *domainIssue.StatusUpdate) error {
	now := time.Now()

	fields := map[string]interface{}{
		"status":     string(update.Status),
		"updated_at": now,
	}
	if update.AgentID != nil {
		fields["agent_id"] = *update.AgentID
	}
	if update.DeviceID != nil {
		fields["device_id"] = *update.DeviceID
	}
	if update.Result != nil {
		raw, err := json.Marshal(update.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fields["result"] = raw
	}
	if update.ErrorMessage != nil {
		fields["error_message"] = *update.ErrorMessage
	}
	if update.IncrementRetry {
		fields["retry_count"] = gorm.Expr("retry_count + 1")
	}
	if update.Status.IsTerminal() {
		completedAt := now
		if update.CompletedAt != nil {
			completedAt = *update.CompletedAt
		}
		fields["completed_at"] = completedAt
	}

	db := r.db.DB.WithContext(ctx).
		Model(&models.CardIssueModel{}).
		Where("id = ? AND status = ?", issueID, string(expected))
	if update.AgentID != nil {
		db = db.Where("agent_id IS NULL OR agent_id = ?", *update.AgentID)
	}

	result := db.Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update card issue status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainIssue.ErrStaleUpdate
	}

	return nil
}

// ClaimNext assigns the oldest open issue of the hotel to the agent. The
// candidate is selected first, then claimed with a conditional update; a
// RowsAffected of zero means another agent won the race, and the caller
// simply polls again.
func (r *CardIssueRepository) ClaimNext(ctx context.Context, agentID, hotelID uuid.UUID) (*domainIssue.CardIssue, error) {
	openStatuses := []string{
		string(domainIssue.StatusPending),
		string(domainIssue.StatusQueued),
	}

	var candidate models.CardIssueModel
	err := r.db.DB.WithContext(ctx).
		Where("hotel_id = ? AND status IN ? AND (agent_id IS NULL OR agent_id = ?)",
			hotelID, openStatuses, agentID).
		Order("created_at ASC").
		First(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainIssue.ErrNoClaimableIssue
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find claimable card issue: %w", err)
	}

	result := r.db.DB.WithContext(ctx).
		Model(&models.CardIssueModel{}).
		Where("id = ? AND status IN ? AND (agent_id IS NULL OR agent_id = ?)",
			candidate.ID, openStatuses, agentID).
		Updates(map[string]interface{}{
			"status":     string(domainIssue.StatusQueued),
			"agent_id":   agentID,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to claim card issue: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domainIssue.ErrNoClaimableIssue
	}

	return r.GetByID(ctx, candidate.ID)
}

func (r *CardIssueRepository) CountOpenByAgent(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(agentIDs))
	if len(agentIDs) == 0 {
		return counts, nil
	}

	type row struct {
		AgentID uuid.UUID
		Count   int64
	}
	var rows []row

	err := r.db.DB.WithContext(ctx).
		Model(&models.CardIssueModel{}).
		Select("agent_id, COUNT(*) as count").
		Where("agent_id IN ? AND status IN ?", agentIDs, []string{
			string(domainIssue.StatusPending),
			string(domainIssue.StatusQueued),
		}).
		Group("agent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count open issues: %w", err)
	}

	for _, r := range rows {
		counts[r.AgentID] = r.Count
	}
	return counts, nil
}
