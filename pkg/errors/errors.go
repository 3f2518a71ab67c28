// Package errors 跨模块共享的哨兵错误
package errors

import "errors"

var (
	// ErrIndexOutOfRange 按序号访问列表时越界
	ErrIndexOutOfRange = errors.New("序号超出范围")
	// ErrRecordNotFound 按主键查找的记录不存在
	ErrRecordNotFound = errors.New("记录不存在")
	// ErrStoreUnavailable 远程 KV 存储未配置或不可用
	ErrStoreUnavailable = errors.New("远程存储未配置")
)
