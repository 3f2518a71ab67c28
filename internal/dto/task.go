package dto

// ── 待办模块 DTO ──

// CreateTaskRequest 添加待办请求
type CreateTaskRequest struct {
	Text string `json:"text" binding:"required,max=500"`
}

// ReplaceTasksRequest 全量替换待办请求
type ReplaceTasksRequest struct {
	Tasks []SnapshotTask `json:"tasks" binding:"dive"`
}
