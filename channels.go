package pcas

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quentinmit/go-pcas/internal/ctxlog"
	"github.com/quentinmit/go-pcas/internal/server/monitor"
	"github.com/quentinmit/go-pcas/internal/server/types"
)

type ChannelProvider = types.ChannelProvider
type ChannelLister = types.ChannelLister
type ChannelFinder = types.ChannelFinder
type Channel = types.Channel
type ChannelGeter = types.ChannelGeter
type ChannelPuter = types.ChannelPuter
type ChannelRPCer = types.ChannelRPCer
type ChannelMonitorCreator = types.ChannelMonitorCreator
type RPCArgs = types.RPCArgs

type Monitor = monitor.Monitor
type MonitorOptions = monitor.Options

// ChannelProviders returns the providers consulted by CreateChannel: the
// native layer, if it serves channels itself, and the "server" status
// channel.
func (srv *Server) ChannelProviders() []ChannelProvider {
	return append([]ChannelProvider(nil), srv.channelProviders...)
}

// CreateChannel asks every provider for name in parallel and returns the
// first channel found, or nil if no provider serves it.
func (srv *Server) CreateChannel(ctx context.Context, name string) (Channel, error) {
	g, gctx := errgroup.WithContext(ctx)
	var (
		mu      sync.Mutex
		channel Channel
	)
	for _, provider := range srv.channelProviders {
		provider := provider
		g.Go(func() error {
			c, err := provider.CreateChannel(gctx, name)
			if err != nil {
				ctxlog.L(ctx).Warnf("ChannelProvider %v failed to create channel %q: %v", provider, name, err)
				return nil
			}
			if c != nil {
				mu.Lock()
				if channel == nil {
					channel = c
				}
				mu.Unlock()
				return context.Canceled
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		return nil, err
	}
	return channel, nil
}

// ChannelList returns the names of every channel the server knows.
func (srv *Server) ChannelList(ctx context.Context) ([]string, error) {
	c, err := srv.CreateChannel(ctx, "server")
	if err != nil {
		return nil, err
	}
	rpc, ok := c.(ChannelRPCer)
	if !ok {
		return nil, fmt.Errorf("no channel listing available")
	}
	resp, err := rpc.ChannelRPC(ctx, RPCArgs{"op": "channels"})
	if err != nil {
		return nil, err
	}
	names, _ := resp.([]string)
	return names, nil
}

// Subscribe delivers the updates of channel name to send until ctx is done
// or the monitor is terminated. The monitor is already started.
func (srv *Server) Subscribe(ctx context.Context, name string, opts MonitorOptions, send func(interface{})) (*Monitor, error) {
	c, err := srv.CreateChannel(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("channel %q: %w", name, ErrUnknownPV)
	}
	mc, ok := c.(ChannelMonitorCreator)
	if !ok {
		return nil, fmt.Errorf("channel %q does not support monitors", name)
	}
	nexter, err := mc.CreateChannelMonitor(ctx)
	if err != nil {
		return nil, err
	}
	m := monitor.New(ctx, opts, nexter, send)
	m.Start(ctx)
	return m, nil
}
