// Command agentflow-sim is a scriptable stand-in for an external tool
// collaborator (an HTTP-backed payment gateway, webhook receiver, or flaky
// downstream service), used by integration tests to exercise the
// orchestrator's retry, timeout, and rollback paths against real network
// calls without a live third party.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/meowstack/agentflow/internal/logging"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:0", "address to listen on")
	scenarioPath := flag.String("scenario", "", "path to a YAML scenario file (required)")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "agentflow-sim: -scenario is required")
		os.Exit(2)
	}

	log := logging.NewDefault()

	scenario, err := loadScenario(*scenarioPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "agentflow-sim:", err)
		os.Exit(1)
	}

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "agentflow-sim: listen:", err)
		os.Exit(1)
	}

	server := &http.Server{Handler: newSimServer(scenario, log)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	fmt.Printf("agentflow-sim listening on %s (scenario %s)\n", listener.Addr(), *scenarioPath)
	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		fmt.Fprintln(os.Stderr, "agentflow-sim:", err)
		os.Exit(1)
	}
}
