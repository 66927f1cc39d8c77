// Package splinter 组装 Splinter 节点
//
// Node 把授权握手、连接管理和节点管理三个组件通过 Fx 连接起来：
//
//	authorization.Module → connection.Module → peer.Module
//
// # 快速开始
//
//	hub := memory.NewHub()
//
//	cfg := config.DefaultConfig()
//	cfg.Connection.ListenEndpoints = []string{"inproc://alpha"}
//
//	node, err := splinter.New(cfg, splinter.WithHub(hub))
//	if err != nil {
//	    return err
//	}
//	if err := node.Start(ctx); err != nil {
//	    return err
//	}
//	defer node.Stop(ctx)
//
//	ref, err := node.Peers().AddPeerRef(remoteID, []string{"inproc://beta"})
//
// 配置中的 KnownPeers 会在启动时自动引用，并在停止时释放。
package splinter
