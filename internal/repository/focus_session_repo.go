package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/flyswxf/calendar/internal/model"
)

// FocusSessionRepository 专注记录数据访问接口，记录只追加不修改
type FocusSessionRepository interface {
	List(ctx context.Context, ownerID string) ([]model.FocusSession, error)
	// ListBetween 查询开始时间落在 [from, to) 内的记录
	ListBetween(ctx context.Context, ownerID string, from, to time.Time) ([]model.FocusSession, error)
	Page(ctx context.Context, ownerID string, offset, limit int) ([]model.FocusSession, int64, error)
	Append(ctx context.Context, session *model.FocusSession) error
	ReplaceAll(ctx context.Context, ownerID string, sessions []model.FocusSession) error
}

type focusSessionRepo struct {
	db *gorm.DB
}

// NewFocusSessionRepo 创建 FocusSessionRepository 实例
func NewFocusSessionRepo(db *gorm.DB) FocusSessionRepository {
	return &focusSessionRepo{db: db}
}

func (r *focusSessionRepo) List(ctx context.Context, ownerID string) ([]model.FocusSession, error) {
	var sessions []model.FocusSession
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("start_at ASC, created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *focusSessionRepo) ListBetween(ctx context.Context, ownerID string, from, to time.Time) ([]model.FocusSession, error) {
	var sessions []model.FocusSession
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND start_at >= ? AND start_at < ?", ownerID, from, to).
		Order("start_at ASC, created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *focusSessionRepo) Page(ctx context.Context, ownerID string, offset, limit int) ([]model.FocusSession, int64, error) {
	var (
		sessions []model.FocusSession
		total    int64
	)
	q := r.db.WithContext(ctx).Model(&model.FocusSession{}).Where("owner_id = ?", ownerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("start_at DESC").Offset(offset).Limit(limit).Find(&sessions).Error
	return sessions, total, err
}

func (r *focusSessionRepo) Append(ctx context.Context, session *model.FocusSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *focusSessionRepo) ReplaceAll(ctx context.Context, ownerID string, sessions []model.FocusSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&model.FocusSession{}).Error; err != nil {
			return err
		}
		if len(sessions) == 0 {
			return nil
		}
		for i := range sessions {
			sessions[i].OwnerID = ownerID
		}
		return tx.Create(&sessions).Error
	})
}
