package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/model"
	"github.com/flyswxf/calendar/internal/repository"
)

var (
	ErrFocusSessionInvalid = errors.New("专注记录无效")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// FocusSessionService 专注记录查询接口（记录只由计时器写入）
type FocusSessionService interface {
	List(ctx context.Context, ownerID string, req *dto.FocusSessionListRequest) ([]dto.FocusSessionResponse, int64, int, int, error)
}

type focusSessionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewFocusSessionService 创建 FocusSessionService 实例
func NewFocusSessionService(repo *repository.Repository, logger *zap.Logger) FocusSessionService {
	return &focusSessionService{repo: repo, logger: logger}
}

// List 按开始时间倒序分页，返回 (列表, 总数, 页码, 每页条数, error)
func (s *focusSessionService) List(ctx context.Context, ownerID string, req *dto.FocusSessionListRequest) ([]dto.FocusSessionResponse, int64, int, int, error) {
	page, size := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	sessions, total, err := s.repo.FocusSession.Page(ctx, ownerID, (page-1)*size, size)
	if err != nil {
		s.logger.Error("查询专注记录失败", zap.Error(err))
		return nil, 0, 0, 0, err
	}

	list := make([]dto.FocusSessionResponse, 0, len(sessions))
	for i := range sessions {
		list = append(list, toFocusSessionResponse(&sessions[i]))
	}
	return list, total, page, size, nil
}

func toFocusSessionResponse(f *model.FocusSession) dto.FocusSessionResponse {
	return dto.FocusSessionResponse{
		ID:              f.FocusSessionID,
		Title:           f.Title,
		Start:           f.StartAt,
		End:             f.EndAt,
		Mode:            f.Mode,
		Completed:       f.Completed,
		DurationMinutes: int(f.Duration().Round(time.Minute) / time.Minute),
	}
}
