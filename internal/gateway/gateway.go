// Package gateway connects the advising dispatcher to chat platforms
// (Slack, Discord) through a common adapter interface.
package gateway

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/dispatch"
)

// Gateway manages platform adapters and feeds inbound messages to the
// dispatcher.
type Gateway struct {
	adapters   map[string]Adapter
	dispatcher *dispatch.Dispatcher
	mu         sync.RWMutex
	logger     *zap.Logger
}

// New creates a gateway around the dispatcher.
func New(d *dispatch.Dispatcher, logger *zap.Logger) *Gateway {
	return &Gateway{
		adapters:   make(map[string]Adapter),
		dispatcher: d,
		logger:     logger,
	}
}

// Register adds an adapter and wires its message handler.
func (g *Gateway) Register(adapter Adapter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	platform := adapter.Platform()
	g.adapters[platform] = adapter
	adapter.OnMessage(g.handle)
	g.logger.Info("registered gateway adapter", zap.String("platform", platform))
}

// handle runs one inbound message through the dispatcher and replies on
// the originating channel.
func (g *Gateway) handle(msg *InboundMessage) {
	ctx := context.Background()
	g.logger.Info("inbound message",
		zap.String("platform", msg.Platform),
		zap.String("channel", msg.ChannelID),
		zap.String("user", msg.UserName),
	)

	reply := g.dispatcher.Handle(ctx, msg.Content, &dispatch.HandlerContext{
		Platform:  msg.Platform,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		UserName:  msg.UserName,
	})
	if reply == "" {
		return
	}

	if err := g.Send(ctx, &OutboundMessage{
		Platform:  msg.Platform,
		ChannelID: msg.ChannelID,
		Content:   reply,
		ReplyTo:   msg.ReplyTo,
	}); err != nil {
		g.logger.Error("send reply failed", zap.Error(err))
	}
}

// ConnectAll starts all registered adapters.
func (g *Gateway) ConnectAll(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for platform, adapter := range g.adapters {
		if err := adapter.Connect(ctx); err != nil {
			g.logger.Error("adapter connect failed",
				zap.String("platform", platform), zap.Error(err))
			return fmt.Errorf("connect %s: %w", platform, err)
		}
		g.logger.Info("adapter connected", zap.String("platform", platform))
	}
	return nil
}

// Send sends a message to a specific platform channel.
func (g *Gateway) Send(ctx context.Context, msg *OutboundMessage) error {
	g.mu.RLock()
	adapter, ok := g.adapters[msg.Platform]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no adapter for platform: %s", msg.Platform)
	}
	return adapter.Send(ctx, msg)
}

// Close shuts down all adapters.
func (g *Gateway) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for platform, adapter := range g.adapters {
		if err := adapter.Close(); err != nil {
			g.logger.Error("adapter close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}

// Adapters returns the list of registered platform names.
func (g *Gateway) Adapters() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.adapters))
	for p := range g.adapters {
		names = append(names, p)
	}
	return names
}
