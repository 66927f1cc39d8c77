// Package dispatch 提供按消息类型路由的消息分发器
//
// Dispatcher 将 (来源连接, 消息类型, 负载) 同步地交给对应的 Handler。
// Handler 是协议扩展点：新增消息类型或授权方案只需注册新的 Handler。
//
// # 使用示例
//
//	d := dispatch.NewDispatcher(sender)
//	d.SetHandler(myHandler)
//	if err := d.Dispatch(connectionID, msgType, payload); err != nil {
//	    logger.Warn("分发失败", "err", err)
//	}
//
// Handler 在调用 Dispatch 的 goroutine 中执行，分发器本身不启动 goroutine。
package dispatch
