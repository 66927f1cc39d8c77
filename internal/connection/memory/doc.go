// Package memory 提供进程内传输实现
//
// 同一个 Hub 上的 Transport 可以相互拨号，连接以帧为单位在内存通道中传递，
// 用于测试和单进程演示。关闭连接的任意一端都会同时关闭两端。
package memory
