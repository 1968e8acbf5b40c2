// Command livtctl is the operator tool for a livt installation. It reads
// the same configuration as the server.
//
//	livtctl migrate                      apply migrations, print the schema version
//	livtctl sweep [--dry-run] [--grace]  delete stored files no program references
//	livtctl user create --email --role   create an account (password prompted)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
