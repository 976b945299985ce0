package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	boardnet "TeamBoard/internal/net"
)

var (
	relaySession   string
	relayAdvertise bool
	relayEmbedNATS bool
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the websocket relay for the local network",
	Long: `Run the websocket relay boards connect to with the ws transport.

The relay fans every frame out to the other subscribers of its topic and keeps
no board state. It serves /ws, /healthz and /metrics. With --embed-nats it also
starts a NATS server so clients on the nats transport can share the same host.`,
	RunE: runRelay,
}

func init() {
	relayCmd.Flags().StringVarP(&relaySession, "session", "s", "", "print a share link for this session")
	relayCmd.Flags().BoolVar(&relayAdvertise, "advertise", false, "advertise the relay over mDNS")
	relayCmd.Flags().BoolVar(&relayEmbedNATS, "embed-nats", false, "also run an embedded NATS server")
}

func runRelay(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, portStr, err := net.SplitHostPort(cfg.Relay.Addr)
	if err != nil {
		return fmt.Errorf("invalid relay.addr %q: %w", cfg.Relay.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid relay port %q: %w", portStr, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	relay := boardnet.NewRelay(logger, boardnet.NewMetrics(reg), reg)

	if relayEmbedNATS || cfg.Relay.EmbedNATS {
		ns, err := startNATS(cfg.Relay.NATSPort, logger)
		if err != nil {
			return err
		}
		defer ns.Shutdown()
	}

	if relayAdvertise || cfg.Relay.Advertise {
		server, err := boardnet.Advertise(port, logger)
		if err != nil {
			logger.Warn("mDNS advertising disabled", zap.Error(err))
		} else {
			defer func() { _ = server.Shutdown() }()
		}
	}

	if relaySession != "" {
		link := boardnet.ShareLink(boardnet.GetOutgoingIP(logger), port, relaySession)
		fmt.Fprintf(cmd.OutOrStdout(), "Share this link to join: %s\n", link)
	}

	return relay.ListenAndServe(ctx, cfg.Relay.Addr)
}

// startNATS runs an in-process NATS server on port.
func startNATS(port int, logger *zap.Logger) (*natsserver.Server, error) {
	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:   "0.0.0.0",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("embedded NATS server did not become ready")
	}
	logger.Info("embedded NATS server started", zap.String("url", ns.ClientURL()))
	return ns, nil
}
