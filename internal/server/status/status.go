// Package status implements the "server" introspection channel.
package status

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quentinmit/go-pcas/internal/ctxlog"
	"github.com/quentinmit/go-pcas/internal/server/types"
)

// Version is reported by the info op.
const Version = "1.0"

// ErrInvalidArgument is returned for an unknown or missing op.
var ErrInvalidArgument = errors.New("invalid argument")

type ChannelProviderser interface {
	ChannelProviders() []types.ChannelProvider
}

type Channel struct {
	Server ChannelProviderser
	// StartTime is reported by the info op.
	StartTime time.Time
}

func (*Channel) Name() string {
	return "server"
}

func (c *Channel) CreateChannel(ctx context.Context, name string) (types.Channel, error) {
	if name == c.Name() {
		return c, nil
	}
	return nil, nil
}

func (c *Channel) ChannelList(ctx context.Context) ([]string, error) {
	return []string{c.Name()}, nil
}

// Info describes the serving process.
type Info struct {
	Process   string
	StartTime string
	Version   string
	ImplLang  string
	Host      string
	OS        string
	Arch      string
}

func (c *Channel) ChannelRPC(ctx context.Context, args types.RPCArgs) (interface{}, error) {
	op := args["op"]
	ctxlog.L(ctx).Debugf("op = %s", op)

	switch op {
	case "channels":
		return c.channels(ctx)
	case "info":
		hostname, _ := os.Hostname()
		info := &Info{
			Process:   os.Args[0],
			StartTime: c.StartTime.Format(time.RFC3339),
			Version:   Version,
			ImplLang:  "Go",
			Host:      hostname,
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
		}
		ctxlog.L(ctx).Debugf("returning info %+v", info)
		return info, nil
	}
	return nil, ErrInvalidArgument
}

// channels lists the channels of every provider, sorted. A provider that
// fails is logged and skipped.
func (c *Channel) channels(ctx context.Context) ([]string, error) {
	var (
		mu  sync.Mutex
		out []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range c.Server.ChannelProviders() {
		p, ok := p.(types.ChannelLister)
		if !ok {
			continue
		}
		g.Go(func() error {
			channels, err := p.ChannelList(gctx)
			if err != nil {
				ctxlog.L(ctx).WithError(err).Errorf("failed to list channels on %v", p)
				return nil
			}
			mu.Lock()
			out = append(out, channels...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
