// Package main is the entrypoint for the phone verification service.
// It serves the verification gRPC surface and the read-only HTTP mirror.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aelexs/phone-verification-service/internal/config"
	"github.com/aelexs/phone-verification-service/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:               "verification",
		PortFromConfig:     func(cfg *config.Config) int { return cfg.Verification.HTTPPort },
		GRPCPortFromConfig: func(cfg *config.Config) int { return cfg.Verification.GRPCPort },
		Setup:              setup,
	}, server.Listeners{})
}
