package dto

// WeekQuery 周视图查询参数
type WeekQuery struct {
	Date     string `form:"date"     binding:"omitempty,datetime=2006-01-02"`
	Viewport int    `form:"viewport" binding:"omitempty,min=0"`
}

// FocusSessionListRequest 专注记录分页参数
type FocusSessionListRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}
