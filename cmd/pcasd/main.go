// Command pcasd serves the PVs declared in a YAML file. Non-soft numeric PVs
// are driven by a simulated random walk; client writes are logged.
package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	pcas "github.com/quentinmit/go-pcas"
	"github.com/quentinmit/go-pcas/ait"
	"github.com/quentinmit/go-pcas/internal/ctxlog"
	"github.com/quentinmit/go-pcas/internal/paramlib"
	"github.com/quentinmit/go-pcas/pvdef"
)

var (
	config  = flag.String("config", "pvs.yaml", "YAML file declaring the PVs to serve")
	poll    = flag.Duration("poll", pcas.DefaultPollInterval, "native serve loop poll interval")
	update  = flag.Duration("update", time.Second, "how often to post pending changes")
	debug   = flag.Int("debug", paramlib.DebugErrors, "native layer debug level (0-2)")
	watch   = flag.String("watch", "", "log every update of this PV")
	verbose = flag.Bool("v", false, "verbose mode")
)

// simulator walks each non-soft numeric PV randomly.
type simulator struct {
	mu     sync.Mutex
	rand   *rand.Rand
	values map[string]float64
	ints   map[string]bool
}

func newSimulator(records []pvdef.Record) *simulator {
	s := &simulator{
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		values: make(map[string]float64),
		ints:   make(map[string]bool),
	}
	for _, r := range records {
		if r.Soft || r.Count != 1 {
			continue
		}
		switch r.Type {
		case ait.Int32:
			s.ints[r.Name] = true
		case ait.Float32, ait.Float64:
		default:
			continue
		}
		s.values[r.Name] = (r.Hilim + r.Lolim) / 2
	}
	return s
}

func (s *simulator) read(name string) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	if !ok {
		return nil
	}
	v += s.rand.NormFloat64()
	s.values[name] = v
	if s.ints[name] {
		return int32(v)
	}
	return v
}

func main() {
	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if *verbose {
		log.SetLevel(log.TraceLevel)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM, unix.SIGHUP)
	defer cancel()

	decls, err := pcas.LoadDeclarations(*config)
	if err != nil {
		ctxlog.L(ctx).Fatalf("loading PVs: %v", err)
	}
	records, err := pvdef.Normalize(decls)
	if err != nil {
		ctxlog.L(ctx).Fatalf("loading PVs: %v", err)
	}
	sim := newSimulator(records)

	layer := paramlib.New(ctx)
	layer.SetDebugLevel(*debug)
	srv := pcas.NewServer(layer)
	err = srv.Start(ctx, pcas.Config{
		PVs:  decls,
		Read: sim.read,
		Write: func(name string, value interface{}) {
			ctxlog.L(ctx).WithField(ctxlog.FieldPV, name).Infof("client wrote %v", value)
		},
		PollInterval: *poll,
	})
	if err != nil {
		ctxlog.L(ctx).Fatalf("starting server: %v", err)
	}

	if *watch != "" {
		m, err := srv.Subscribe(ctx, *watch, pcas.MonitorOptions{}, func(v interface{}) {
			ctxlog.L(ctx).WithField(ctxlog.FieldPV, *watch).Infof("update: %+v", v)
		})
		if err != nil {
			ctxlog.L(ctx).Fatalf("watching %q: %v", *watch, err)
		}
		defer m.Terminate(context.Background())
	}

	go func() {
		ticker := time.NewTicker(*update)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := srv.UpdatePVs(); err != nil {
					ctxlog.L(ctx).WithError(err).Error("updating PVs")
				}
			}
		}
	}()

	<-ctx.Done()
	ctxlog.L(ctx).Info("exiting")
	if err := srv.Wait(); err != nil {
		ctxlog.L(ctx).WithError(err).Error("native loops")
		os.Exit(1)
	}
}
