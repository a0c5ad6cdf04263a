// Package types defines the client-facing side of a served PV: the
// interfaces channel providers and channels implement.
package types

import (
	"context"
)

// ChannelProvider represents the minimal channel provider.
// Optionally, a channel provider may implement ChannelLister or ChannelFinder.
type ChannelProvider interface {
	// CreateChannel returns nil, nil for names the provider does not serve.
	CreateChannel(ctx context.Context, name string) (Channel, error)
}
type ChannelLister interface {
	ChannelList(ctx context.Context) ([]string, error)
}
type ChannelFinder interface {
	ChannelFind(ctx context.Context, name string) (bool, error)
}

// Channel represents the minimal channel.
//
// For a channel to be useful, it must implement one of the following additional interfaces:
//
// - ChannelGeter
// - ChannelPuter
// - ChannelRPCer
// - ChannelMonitorCreator
type Channel interface {
	Name() string
}

type ChannelGeter interface {
	ChannelGet(ctx context.Context) (response interface{}, err error)
}

// ChannelPuter accepts a client write. value is a bare element or a slice,
// in the same forms host drivers see.
type ChannelPuter interface {
	ChannelPut(ctx context.Context, value interface{}) error
}

// RPCArgs are the named string arguments of an RPC call.
type RPCArgs map[string]string

type ChannelRPCer interface {
	ChannelRPC(ctx context.Context, args RPCArgs) (response interface{}, err error)
}

type ChannelMonitorCreator interface {
	CreateChannelMonitor(ctx context.Context) (Nexter, error)
}

// Nexter yields successive values of a monitored channel. Next blocks until
// a value is available or ctx is done.
type Nexter interface {
	Next(ctx context.Context) (interface{}, error)
}
