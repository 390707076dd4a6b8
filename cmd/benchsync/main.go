// Command benchsync drives one end-to-end sync run against a lightwalletd
// server (or, with --demo, an in-process fake populated with synthetic
// blocks) and prints the resulting orchestrator.Report as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/forestrie/shieldsync/compact"
	"github.com/forestrie/shieldsync/config"
	"github.com/forestrie/shieldsync/lwd"
	"github.com/forestrie/shieldsync/orchestrator"
	"github.com/forestrie/shieldsync/poolcrypto"
	"github.com/forestrie/shieldsync/poolcrypto/testkit"
	"github.com/forestrie/shieldsync/workerpool"
)

var (
	configPath string
	demo       bool
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchsync",
		Short: "Sync a shielded wallet's commitment trees against a light-client server",
		RunE:  runSync,
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (required)")
	cmd.Flags().BoolVar(&demo, "demo", false, "use an in-process fake lightwalletd with synthetic blocks instead of dialing lightwalletd_url")
	cmd.Flags().StringVar(&logLevel, "log-level", "INFO", "log level (NOOP, INFO, DEBUG)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	logger.New(logLevel)
	defer logger.OnExit()
	log := logger.Sugar.WithServiceName("benchsync")

	params, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, closeClient, err := dialClient(ctx, params)
	if err != nil {
		return err
	}
	defer closeClient()

	orch := &orchestrator.Orchestrator{
		Client:    client,
		Pool:      workerpool.New(runtime.NumCPU()),
		BatchSize: params.BatchSize,
		Log:       log,
	}

	ivk := testkit.DummyIVK{Marker: 0xC0FFEE}
	ivks := []poolcrypto.PreparedIVK{ivk.Prepare()}

	if params.WantsPoolA() {
		orch.PoolA = &orchestrator.PoolEngine{
			Params:       orchardParams(),
			Decryptor:    testkit.DummyDecryptor{},
			IVKs:         ivks,
			ActionDomain: func(compact.Action) poolcrypto.Domain { return nil },
		}
	}
	if params.WantsPoolB() {
		orch.PoolB = &orchestrator.PoolEngine{
			Params:       saplingParams(),
			Decryptor:    testkit.DummyDecryptor{},
			IVKs:         ivks,
			OutputDomain: func(compact.Output) poolcrypto.Domain { return nil },
		}
	}

	if err := orch.Bootstrap(ctx, params.StartBlock-1); err != nil {
		return err
	}

	report, err := orch.Run(ctx, params.StartBlock, params.EndBlock)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// treeDepth is D_p for both pools in this demo harness. The real depths
// differ by pool and network in production; a caller wiring a real
// poolcrypto.Params would set this per pool instead.
const treeDepth = 32

func orchardParams() poolcrypto.Params {
	return poolcrypto.Params{Pool: poolcrypto.PoolA, Depth: treeDepth, ShardHeight: treeDepth / 2, CiphertextSize: 52, Hasher: testkit.SHA256Hasher{}}
}

func saplingParams() poolcrypto.Params {
	return poolcrypto.Params{Pool: poolcrypto.PoolB, Depth: treeDepth, ShardHeight: treeDepth / 2, CiphertextSize: 52, Hasher: testkit.SHA256Hasher{}}
}

func dialClient(ctx context.Context, params *config.Params) (lwd.Client, func(), error) {
	if demo {
		c := demoClient(params)
		return c, func() {}, nil
	}
	c, err := lwd.Dial(ctx, params.LightwalletdURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return c, func() { c.Close() }, nil
}
