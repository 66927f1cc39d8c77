// Package main 运行两个进程内 Splinter 节点，演示授权握手与节点管理
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	splinter "github.com/dep2p/go-splinter"
	"github.com/dep2p/go-splinter/config"
	"github.com/dep2p/go-splinter/internal/connection/memory"
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

var logger = log.Logger("splinter/cmd")

var (
	configFile = flag.String("config", "", "节点配置文件（JSON），两个节点共用")
	duration   = flag.Duration("duration", 0, "运行时长（0 = 直到收到信号）")
	verbose    = flag.Bool("v", false, "输出 Debug 日志")
)

const (
	alphaEndpoint = "inproc://alpha"
	betaEndpoint  = "inproc://beta"
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *verbose {
		log.SetLevel(log.LevelDebug)
	}

	base, err := loadConfig(*configFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	hub := memory.NewHub()
	alpha, err := newNode(base, alphaEndpoint, hub)
	if err != nil {
		return fmt.Errorf("alpha: %w", err)
	}
	beta, err := newNode(base, betaEndpoint, hub)
	if err != nil {
		return fmt.Errorf("beta: %w", err)
	}

	for _, n := range []*splinter.Node{alpha, beta} {
		if err := n.Start(ctx); err != nil {
			return err
		}
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = alpha.Stop(stopCtx)
		_ = beta.Stop(stopCtx)
	}()

	beta.SetFrameHandler(func(connectionID string, frame []byte) {
		fmt.Printf("beta 收到 %q (connection %s)\n", frame, log.TruncateID(connectionID, 8))
	})

	fmt.Printf("alpha: %s\nbeta:  %s\n", alpha.PeerID(), beta.PeerID())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return driveAlpha(gctx, alpha, beta.PeerID()) })
	g.Go(func() error { return driveBeta(gctx, beta, alpha.PeerID()) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return config.FromJSON(data)
}

func newNode(base *config.Config, endpoint string, hub *memory.Hub) (*splinter.Node, error) {
	cfg := *base
	cfg.Connection.ListenEndpoints = []string{endpoint}
	// 两个节点各自生成密钥，否则身份相同
	cfg.Authorization.PrivateKey = ""
	return splinter.New(&cfg, splinter.WithHub(hub))
}

// driveAlpha 引用 beta，连接建立后发送一帧
func driveAlpha(ctx context.Context, alpha *splinter.Node, betaID string) error {
	events, err := alpha.Peers().Subscribe()
	if err != nil {
		return err
	}
	defer events.Close()

	ref, err := alpha.Peers().AddPeerRef(betaID, []string{betaEndpoint})
	if err != nil {
		return err
	}
	defer ref.Release()

	for {
		note, err := events.Next(ctx)
		if err != nil {
			return err
		}
		logger.Info("alpha 节点事件", "event", note.Kind.String(), "peerID", log.TruncateID(note.PeerID, 24))
		if note.Kind != pkgif.PeerConnected {
			continue
		}

		cid, ok, err := alpha.Peers().GetConnectionID(betaID)
		if err != nil {
			return err
		}
		if ok {
			if err := alpha.Sender().Send(cid, []byte("hello from alpha")); err != nil {
				logger.Warn("发送失败", "err", err)
			}
		}
	}
}

// driveBeta 等 alpha 作为未引用节点出现后再引用它
func driveBeta(ctx context.Context, beta *splinter.Node, alphaID string) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		unref, err := beta.Peers().ListUnreferencedPeers()
		if err != nil {
			return err
		}
		for _, id := range unref {
			if id != alphaID {
				continue
			}
			ref, err := beta.Peers().AddPeerRef(alphaID, []string{alphaEndpoint})
			if err != nil {
				return err
			}
			defer ref.Release()

			peers, err := beta.Peers().ListPeers()
			if err != nil {
				return err
			}
			fmt.Printf("beta 已引用节点: %v\n", peers)
			<-ctx.Done()
			return ctx.Err()
		}
	}
}
