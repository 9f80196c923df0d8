package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/codec"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
)

// #region main
func main() {
	addr := flag.String("addr", envOr("POLICY_GRPC_ADDR", "localhost:50061"), "controller gRPC address")
	timeout := flag.Duration("timeout", 5*time.Second, "per-call timeout")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	client, err := codec.NewClient(*addr)
	if err != nil {
		log.Fatalf("failed to connect to controller at %s: %v", *addr, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch args[0] {
	case "decide":
		err = runDecide(ctx, client, args[1:])
	case "reward":
		err = runReward(ctx, client, args[1:])
	case "dump":
		var out string
		out, err = client.Dump(ctx)
		fmt.Print(out)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: policyctl [--addr host:port] decide <s0> <s1>")
	fmt.Fprintln(os.Stderr, "       policyctl [--addr host:port] reward <s0> <s1> <action> <wait_ns> <run_ns> <turnaround_ns> [decision_id]")
	fmt.Fprintln(os.Stderr, "       policyctl [--addr host:port] dump")
	fmt.Fprintln(os.Stderr, "state values are raw Q16.16 integers (65536 = 1.0)")
}

// #endregion main

// #region commands
func runDecide(ctx context.Context, client *codec.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("want 2 arguments, got %d", len(args))
	}
	s0, err := parseScalar(args[0])
	if err != nil {
		return err
	}
	s1, err := parseScalar(args[1])
	if err != nil {
		return err
	}

	resp, err := client.Decide(ctx, codec.DecideRequest{S0: s0, S1: s1})
	if err != nil {
		return err
	}
	fmt.Printf("decision=%s action=%d niceness=%+d\n", resp.DecisionID, resp.Action, resp.Niceness)
	return nil
}

func runReward(ctx context.Context, client *codec.Client, args []string) error {
	if len(args) != 6 && len(args) != 7 {
		return fmt.Errorf("want 6 or 7 arguments, got %d", len(args))
	}
	s0, err := parseScalar(args[0])
	if err != nil {
		return err
	}
	s1, err := parseScalar(args[1])
	if err != nil {
		return err
	}
	action, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("action: %w", err)
	}
	var ns [3]uint64
	for i := range ns {
		if ns[i], err = strconv.ParseUint(args[3+i], 10, 64); err != nil {
			return fmt.Errorf("duration %q: %w", args[3+i], err)
		}
	}
	req := codec.RewardRequest{
		S0: s0, S1: s1, Action: action,
		WaitNs: ns[0], RunNs: ns[1], TurnaroundNs: ns[2],
	}
	if len(args) == 7 {
		req.DecisionID = args[6]
	}

	resp, err := client.Reward(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("cost=%s reward=%s baseline=%s advantage=%s\n", resp.Cost, resp.Reward, resp.Baseline, resp.Advantage)
	return nil
}

// #endregion commands

// #region helpers
func parseScalar(s string) (fixed.Scalar, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("state value %q: %w", s, err)
	}
	return fixed.Scalar(v), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
