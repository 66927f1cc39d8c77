// Package lib 包含与组件无关的基础设施工具库
//
//   - log: 基于 log/slog 的组件日志
package lib
