package main

import (
	"context"
	"os"

	"fmpmcp/runner"
)

func main() {
	os.Exit(runner.Run(context.Background(), runner.Options{}))
}
