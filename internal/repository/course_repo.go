package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/flyswxf/calendar/internal/model"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	List(ctx context.Context, ownerID string) ([]model.Course, error)
	GetByID(ctx context.Context, ownerID, courseID string) (*model.Course, error)
	Append(ctx context.Context, course *model.Course) error
	// AppendBatch 追加多门课程（ICS 导入追加模式）
	AppendBatch(ctx context.Context, ownerID string, courses []model.Course) error
	// ReplaceAll 在事务中全量替换用户课表：先删除旧数据，再批量插入新数据
	ReplaceAll(ctx context.Context, ownerID string, courses []model.Course) error
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, ownerID, courseID string) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) List(ctx context.Context, ownerID string) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("position ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) GetByID(ctx context.Context, ownerID, courseID string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND course_id = ?", ownerID, courseID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) Append(ctx context.Context, course *model.Course) error {
	return r.AppendBatch(ctx, course.OwnerID, []model.Course{*course})
}

func (r *courseRepo) AppendBatch(ctx context.Context, ownerID string, courses []model.Course) error {
	if len(courses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Course{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
			return err
		}
		for i := range courses {
			courses[i].OwnerID = ownerID
			courses[i].Position = int(count) + i
		}
		return tx.Create(&courses).Error
	})
}

func (r *courseRepo) ReplaceAll(ctx context.Context, ownerID string, courses []model.Course) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&model.Course{}).Error; err != nil {
			return err
		}
		if len(courses) == 0 {
			return nil
		}
		for i := range courses {
			courses[i].OwnerID = ownerID
			courses[i].Position = i
		}
		return tx.Create(&courses).Error
	})
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

func (r *courseRepo) Delete(ctx context.Context, ownerID, courseID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.Where("owner_id = ? AND course_id = ?", ownerID, courseID).First(&course).Error; err != nil {
			return err
		}
		if err := tx.Delete(&course).Error; err != nil {
			return err
		}
		return tx.Model(&model.Course{}).
			Where("owner_id = ? AND position > ?", ownerID, course.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
}
