// Package protocol 定义连接授权协议的消息及其线格式
//
// 所有消息都包裹在信封中传输：
//
//	Envelope { 1: message_type (varint), 2: payload (bytes) }
//
// 负载使用 protobuf 线格式（protowire）编码，未知字段在解码时被跳过，
// 便于后续版本增加字段。
package protocol
