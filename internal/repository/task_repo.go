package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flyswxf/calendar/internal/model"
	pkgerrors "github.com/flyswxf/calendar/pkg/errors"
)

// TaskRepository 待办数据访问接口
// 任务按 position 排序，index 即列表中的序号
type TaskRepository interface {
	List(ctx context.Context, ownerID string) ([]model.Task, error)
	Append(ctx context.Context, task *model.Task) error
	// ReplaceAll 在事务中全量替换用户的待办列表
	ReplaceAll(ctx context.Context, ownerID string, tasks []model.Task) error
	// UpdateAt 在事务中修改第 index 个任务，越界返回 ErrIndexOutOfRange
	UpdateAt(ctx context.Context, ownerID string, index int, mutate func(*model.Task)) (*model.Task, error)
	// UpdateByID 按主键修改任务，不存在返回 ErrRecordNotFound
	UpdateByID(ctx context.Context, ownerID, taskID string, mutate func(*model.Task)) (*model.Task, error)
	DeleteAt(ctx context.Context, ownerID string, index int) error
	// Rollover 删除已完成任务，未完成任务标记为遗留；ownerID 为空时处理全部用户
	Rollover(ctx context.Context, ownerID string) (purged, flagged int64, err error)
}

type taskRepo struct {
	db *gorm.DB
}

// NewTaskRepo 创建 TaskRepository 实例
func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) List(ctx context.Context, ownerID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("position ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepo) Append(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Task{}).Where("owner_id = ?", task.OwnerID).Count(&count).Error; err != nil {
			return err
		}
		task.Position = int(count)
		return tx.Create(task).Error
	})
}

func (r *taskRepo) ReplaceAll(ctx context.Context, ownerID string, tasks []model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		for i := range tasks {
			tasks[i].OwnerID = ownerID
			tasks[i].Position = i
		}
		return tx.Create(&tasks).Error
	})
}

func (r *taskRepo) UpdateAt(ctx context.Context, ownerID string, index int, mutate func(*model.Task)) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findAt(tx, ownerID, index, &task); err != nil {
			return err
		}
		mutate(&task)
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepo) UpdateByID(ctx context.Context, ownerID, taskID string, mutate func(*model.Task)) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ? AND task_id = ?", ownerID, taskID).
			First(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		mutate(&task)
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepo) DeleteAt(ctx context.Context, ownerID string, index int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := findAt(tx, ownerID, index, &task); err != nil {
			return err
		}
		if err := tx.Delete(&task).Error; err != nil {
			return err
		}
		// 后续任务序号前移
		return tx.Model(&model.Task{}).
			Where("owner_id = ? AND position > ?", ownerID, task.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
}

func (r *taskRepo) Rollover(ctx context.Context, ownerID string) (purged, flagged int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := func() *gorm.DB {
			q := tx.Model(&model.Task{})
			if ownerID != "" {
				q = q.Where("owner_id = ?", ownerID)
			}
			return q
		}

		res := scope().Where("completed = ?", true).Delete(&model.Task{})
		if res.Error != nil {
			return res.Error
		}
		purged = res.RowsAffected

		res = scope().Where("completed = ? AND is_legacy = ?", false, false).
			Updates(map[string]interface{}{"is_legacy": true, "updated_at": gorm.Expr("NOW()")})
		if res.Error != nil {
			return res.Error
		}
		flagged = res.RowsAffected

		// 删除后重排序号
		return tx.Exec(`UPDATE tasks t SET position = s.rn - 1
			FROM (SELECT task_id, ROW_NUMBER() OVER (PARTITION BY owner_id ORDER BY position) AS rn FROM tasks) s
			WHERE t.task_id = s.task_id AND t.position <> s.rn - 1`).Error
	})
	return purged, flagged, err
}

// findAt 按序号加锁读取一条任务
func findAt(tx *gorm.DB, ownerID string, index int, task *model.Task) error {
	if index < 0 {
		return pkgerrors.ErrIndexOutOfRange
	}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).
		Order("position ASC").
		Offset(index).
		First(task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.ErrIndexOutOfRange
	}
	return err
}
