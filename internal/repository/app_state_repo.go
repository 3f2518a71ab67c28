package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flyswxf/calendar/internal/model"
)

// AppStateRepository 应用状态数据访问接口
type AppStateRepository interface {
	// Get 读取状态值，不存在时 ok 为 false
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type appStateRepo struct {
	db *gorm.DB
}

// NewAppStateRepo 创建 AppStateRepository 实例
func NewAppStateRepo(db *gorm.DB) AppStateRepository {
	return &appStateRepo{db: db}
}

func (r *appStateRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var state model.AppState
	err := r.db.WithContext(ctx).Where("state_key = ?", key).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return state.StateValue, true, nil
}

func (r *appStateRepo) Set(ctx context.Context, key, value string) error {
	state := model.AppState{StateKey: key, StateValue: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"state_value", "updated_at"}),
	}).Create(&state).Error
}
