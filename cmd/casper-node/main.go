// Command casper-node is a minimal, self-contained demo of the gossip
// core: it schedules a tiny two-block DAG for download from a single
// in-process peer, relays the result, and serves the metrics surface
// over HTTP, all wired the way a real node would wire Backend,
// PeerDiscovery and Connector — just with reference, in-memory
// implementations standing in for the external collaborators.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/urfave/cli/v2"

	"github.com/casperlabs/casper-node/common"
	"github.com/casperlabs/casper-node/gossip"
	"github.com/casperlabs/casper-node/gossip/downloader"
	"github.com/casperlabs/casper-node/gossip/relay"
	"github.com/casperlabs/casper-node/internal/backend"
	"github.com/casperlabs/casper-node/internal/clog"
	"github.com/casperlabs/casper-node/internal/config"
	"github.com/casperlabs/casper-node/internal/discovery"
	"github.com/casperlabs/casper-node/internal/fakenet"
	"github.com/casperlabs/casper-node/internal/metrics"
	prommetrics "github.com/casperlabs/casper-node/internal/metrics/prometheus"
)

var log = clog.New("cmd")

func main() {
	app := &cli.App{
		Name:  "casper-node",
		Usage: "demo a Relay Engine + Download Manager round trip against an in-process peer",
		Flags: append(config.Flags(),
			&cli.StringFlag{Name: "metrics-addr", Value: "127.0.0.1:6060", Usage: "address to serve Prometheus metrics on"},
		),
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Crit("fatal", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.FromCLI(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg := metrics.NewRegistry()
	go serveMetrics(c.String("metrics-addr"), reg)

	self := common.Node{ID: "self"}
	peer := common.Node{ID: "peer-1"}

	net := fakenet.NewNetwork()
	peerHandler := fakenet.NewPeer(func(from gossip.Node, hashes []gossip.BlockHash) bool { return true })
	net.Register(peer, peerHandler)

	genesisHash := common.HexToHash("0x01")
	childHash := common.HexToHash("0x02")
	peerHandler.Publish(genesisHash, []byte("genesis block body"))
	peerHandler.Publish(childHash, []byte("child block body"))

	disc := discovery.New(time.Minute)
	disc.Observe(peer)

	relayEngine := relay.New(relay.Config{
		RelayFactor:     cfg.RelayFactor,
		RelaySaturation: cfg.RelaySaturation,
		IsSynchronous:   cfg.IsSynchronous,
	}, disc, net.Connector(self), self, reg)

	localStore := backend.New(4<<20, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dl := downloader.New(ctx, downloader.Config{
		MaxParallelDownloads: cfg.MaxParallelDownloads,
		MaxRetries:           cfg.Retries.MaxRetries,
		InitialBackoff:       cfg.Retries.InitialBackoff,
		BackoffFactor:        cfg.Retries.BackoffFactor,
	}, localStore, net.Connector(self), relayEngine, nil, reg)
	defer dl.Shutdown()

	sh1, dh1 := dl.ScheduleDownload(ctx, gossip.BlockSummary{BlockHash: genesisHash}, peer, true)
	if err := sh1.Wait(ctx); err != nil {
		return fmt.Errorf("schedule genesis: %w", err)
	}

	deps := mapset.NewThreadUnsafeSet[gossip.BlockHash]()
	deps.Add(genesisHash)
	childSummary := gossip.BlockSummary{BlockHash: childHash, ParentHashes: deps}
	sh2, dh2 := dl.ScheduleDownload(ctx, childSummary, peer, false)
	if err := sh2.Wait(ctx); err != nil {
		return fmt.Errorf("schedule child: %w", err)
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
	defer waitCancel()
	if err := dh1.Wait(waitCtx); err != nil {
		return fmt.Errorf("download genesis: %w", err)
	}
	if err := dh2.Wait(waitCtx); err != nil {
		return fmt.Errorf("download child: %w", err)
	}

	body, _ := localStore.Block(childHash)
	log.Info("demo complete", "child_body", string(body), "relay_accepted", reg.RelayAccepted.Count())
	return nil
}

func serveMetrics(addr string, reg *metrics.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prommetrics.Handler(reg))
	log.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", "err", err)
	}
}
