package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/libp2p/go-libp2p"
	libp2phost "github.com/libp2p/go-libp2p/core/host"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/luxfi/thetacrypt/internal/config"
	"github.com/luxfi/thetacrypt/internal/logging"
	"github.com/luxfi/thetacrypt/internal/orchestrator"
	"github.com/luxfi/thetacrypt/pkg/gossip"
	"github.com/luxfi/thetacrypt/pkg/keychain"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/rpcapi"
	"github.com/luxfi/thetacrypt/pkg/rpcapi/grpcserver"
)

var (
	configPath string
	devLog     bool
	partyIDs   []string
	threshold  int
)

var rootCmd = &cobra.Command{
	Use:   "thetacrypt-node",
	Short: "Runs one node of a threshold-cryptography service group",
	Long: `thetacrypt-node loads a keychain of private shares, joins the gossip
overlay with its peers, and serves the node RPC surface that accepts
decrypt/sign/coin requests and drives them to completion.`,
	RunE: runServe,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "./thetacrypt.toml", "Path to the node's TOML config file")
	rootCmd.Flags().BoolVar(&devLog, "dev", false, "Use human-readable development logging instead of JSON")
	rootCmd.Flags().StringSliceVar(&partyIDs, "party", nil, "Party id of every node in the group (repeatable, in order)")
	rootCmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "Threshold k for this group")
	rootCmd.MarkFlagRequired("party")
	rootCmd.MarkFlagRequired("threshold")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Development: devLog, Level: 0, NodeID: cfg.NodeID})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	// The keychain load and the libp2p host start touch nothing shared and
	// can fail independently; run them concurrently and collect both
	// failures instead of bailing on whichever happens to run first.
	var kc *keychain.Keychain
	var p2pHost libp2phost.Host
	{
		var kcErr, hostErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			kc, kcErr = keychain.Load(cfg.KeychainPath)
		}()
		go func() {
			defer wg.Done()
			p2pHost, hostErr = libp2p.New(libp2p.ListenAddrStrings(cfg.ListenAddr))
		}()
		wg.Wait()

		var merr *multierror.Error
		if kcErr != nil {
			merr = multierror.Append(merr, fmt.Errorf("load keychain: %w", kcErr))
		}
		if hostErr != nil {
			merr = multierror.Append(merr, fmt.Errorf("start libp2p host: %w", hostErr))
		}
		if err := merr.ErrorOrNil(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer p2pHost.Close()

	gs, err := gossip.New(ctx, p2pHost, cfg.GossipTopic, log)
	if err != nil {
		return fmt.Errorf("join gossip topic: %w", err)
	}
	defer gs.Close()

	timeouts, err := cfg.Timeouts()
	if err != nil {
		return err
	}

	engine := orchestrator.NewEngine(ctx, kc, gs, log, orchestrator.Config{
		RegistryCmdCap: cfg.Registry.CmdCap,
		BacklogCap:     cfg.Registry.BacklogCap,
		InboundCap:     cfg.Registry.InboundCap,
		Timeouts:       timeouts,
		DefaultTimeout: cfg.DefaultTimeout.Duration,
	})

	ids := make(party.IDSlice, len(partyIDs))
	for i, id := range partyIDs {
		ids[i] = party.ID(id)
	}
	membership := grpcserver.Membership{
		SelfID:    party.ID(cfg.NodeID),
		PartyIDs:  ids.Sorted(),
		Threshold: threshold,
	}
	server := grpcserver.New(engine, membership)

	lis, err := net.Listen("tcp", cfg.RPCAddr)
	if err != nil {
		return fmt.Errorf("listen on rpc address: %w", err)
	}
	grpcSrv := grpc.NewServer()
	rpcapi.RegisterNodeServiceServer(grpcSrv, server)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("rpc server listening", zap.String("addr", cfg.RPCAddr))
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		<-gctx.Done()
		grpcSrv.GracefulStop()
		return nil
	})

	g.Go(func() error {
		for in := range gs.Listen(gctx) {
			engine.Deliver(gctx, in.InstanceID, in.Message)
		}
		return nil
	})

	g.Go(func() error {
		interval := cfg.ScavengeInterval.Duration
		if interval == 0 {
			interval = time.Minute
		}
		maxAge := cfg.ScavengeMaxAge.Duration
		if maxAge == 0 {
			maxAge = 10 * time.Minute
		}
		return engine.Run(gctx, interval, maxAge)
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-stop:
			cancel()
		case <-gctx.Done():
		}
	}()

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
