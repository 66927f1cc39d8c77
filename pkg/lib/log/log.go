// Package log 提供 go-splinter 统一日志接口
//
// 基于标准库 log/slog 封装。每个组件在包级别声明自己的 logger：
//
//	var logger = log.Logger("peer")
//	logger.Info("节点已连接", "peerID", log.TruncateID(peerID, 8))
//
// LazyLogger 在每次调用时读取 slog.Default()，因此 SetOutput/SetLevel
// 对已经声明的组件 logger 同样生效。
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// 日志级别常量
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ComponentKey 组件名属性键
const ComponentKey = "component"

// ============================================================================
//                              全局输出配置
// ============================================================================

// SetOutput 将默认 logger 输出重定向到 w（Info 级别）
func SetOutput(w io.Writer) {
	SetOutputWithLevel(w, slog.LevelInfo)
}

// SetOutputWithLevel 同时设置输出目标和级别
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetJSONOutput 使用 JSON 格式输出
func SetJSONOutput(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetLevel 设置默认 logger 级别，输出到 stderr
func SetLevel(level slog.Level) {
	SetOutputWithLevel(os.Stderr, level)
}

// Discard 丢弃所有日志（测试用）
func Discard() {
	SetOutputWithLevel(io.Discard, slog.LevelError+1)
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载组件 logger
type LazyLogger struct {
	component string
	attrs     []any
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) current() *slog.Logger {
	lg := slog.Default().With(ComponentKey, l.component)
	if len(l.attrs) > 0 {
		lg = lg.With(l.attrs...)
	}
	return lg
}

// With 返回附带固定属性的新 LazyLogger
func (l *LazyLogger) With(args ...any) *LazyLogger {
	attrs := make([]any, 0, len(l.attrs)+len(args))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, args...)
	return &LazyLogger{component: l.component, attrs: attrs}
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) { l.current().Debug(msg, args...) }

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) { l.current().Info(msg, args...) }

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) { l.current().Warn(msg, args...) }

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) { l.current().Error(msg, args...) }

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.current().DebugContext(ctx, msg, args...)
}

// WarnContext 带 context 的 Warn 日志
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.current().WarnContext(ctx, msg, args...)
}

// Enabled 判断级别是否启用，用于跳过昂贵的日志参数构造
func (l *LazyLogger) Enabled(level slog.Level) bool {
	return slog.Default().Enabled(context.Background(), level)
}

// ============================================================================
//                              工具函数
// ============================================================================

// TruncateID 安全截取 ID 用于日志显示
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}

func init() {
	SetOutputWithLevel(os.Stderr, slog.LevelInfo)
}
