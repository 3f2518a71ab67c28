package dto

// ── 计时器 DTO ──

// OpenTimerRequest 打开计时器（可绑定待办）
type OpenTimerRequest struct {
	TaskIndex *int   `json:"task_index" binding:"omitempty,min=0"`
	Title     string `json:"title"      binding:"omitempty,max=500"`
}

// SetTimerModeRequest 切换计时模式
type SetTimerModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=countdown stopwatch"`
}

// SetCountdownRequest 设置倒计时分钟数，超出 1-600 时截断
type SetCountdownRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}
