package main

import (
	"context"
	"fmt"
	"os"

	"github.com/stellum-labs/stellum/internal/config"
	"github.com/stellum-labs/stellum/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %s\n", err)
		os.Exit(1)
	}

	if err := web.Run(context.Background(), cfg, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error running server: %s\n", err)
		os.Exit(1)
	}
}
