package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"barcodescanner/logging"
)

// SetupHandler cancels the returned context on SIGINT or SIGTERM so the camera
// is released before exit. A second signal exits immediately.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	// Create a channel to receive OS signals
	sigChan := make(chan os.Signal, 2)

	// Register for specific signals
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Handle signals in a separate goroutine
	go func() {
		select {
		case sig := <-sigChan:
			logging.LogInfo("Received %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}

		// Still running after the first signal; force the exit
		<-sigChan
		os.Exit(1)
	}()

	return ctx, cancel
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	// Get the number of CPUs available
	numCPU := runtime.NumCPU()

	// Decoding goes through CGo frame conversion; leave headroom for the runtime
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
