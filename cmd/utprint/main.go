package main

import (
	"context"
	"os"

	"utprint/cmd/utprint/commands"
	"utprint/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	code := commands.ExecuteContext(ctx)
	cancel()
	os.Exit(code)
}
