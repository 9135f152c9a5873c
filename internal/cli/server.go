package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tokenrelay/relayd/internal/config"
	"github.com/tokenrelay/relayd/internal/core/event"
	grpcserver "github.com/tokenrelay/relayd/internal/grpc"
	"github.com/tokenrelay/relayd/internal/rpc"
	"github.com/tokenrelay/relayd/internal/server/api/jsonrpc"
)

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the relay daemon",
	Long: `Start the relayd server which provides:
- JSON-RPC endpoints for balances, supplies, relay state and event submission
- WebSocket stream of applied events
- Optional gRPC endpoint

This is the default command when no subcommand is specified.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(resolveConfigPath())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream := rpc.NewStreamServer()
	publisher := rpc.NewPublisher(stream)

	n, err := openNode(ctx, cfg, event.WithAppliedHook(func(ev event.Event) {
		publisher.PublishApplied(rpc.NewAppliedEvent(ev))
	}))
	if err != nil {
		return err
	}
	defer n.Close()

	handler := jsonrpc.NewRelayHandler(n.engine, n.store, n.store)
	rpcServer := jsonrpc.NewServer(handler)

	mux := http.NewServeMux()
	mux.Handle("/", rpcServer)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"relayd"}`))
	})

	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", stream)

	httpServer := &http.Server{Addr: cfg.RPC.JSONRPCAddr, Handler: mux}
	wsServer := &http.Server{Addr: cfg.RPC.WSAddr, Handler: wsMux}

	if !quiet {
		fmt.Printf("relayd %s on %s\n", rootCmd.Version, cfg.Relay.Account)
		fmt.Printf("  - JSON-RPC:  http://%s/\n", cfg.RPC.JSONRPCAddr)
		fmt.Printf("  - WebSocket: ws://%s/ws\n", cfg.RPC.WSAddr)
		if cfg.RPC.GRPCEnabled {
			fmt.Printf("  - gRPC:      %s\n", cfg.RPC.GRPCAddr)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := wsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var gs *grpcserver.Server
	if cfg.RPC.GRPCEnabled {
		gs, err = grpcserver.NewServer(&grpcserver.ServerConfig{
			Address:        cfg.RPC.GRPCAddr,
			MaxRecvMsgSize: 4 * 1024 * 1024,
			MaxSendMsgSize: 4 * 1024 * 1024,
		})
		if err != nil {
			return err
		}
		g.Go(gs.Start)
	}

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		httpServer.Shutdown(shutdownCtx)
		wsServer.Shutdown(shutdownCtx)
		if gs != nil {
			gs.Stop()
		}
		return nil
	})

	return g.Wait()
}

func resolveConfigPath() string {
	if configFile != "" {
		return configFile
	}
	return config.DefaultConfigPath()
}
