package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"TeamBoard/internal/ai"
	"TeamBoard/internal/board"
	"TeamBoard/internal/config"
	"TeamBoard/internal/export"
	boardnet "TeamBoard/internal/net"
	"TeamBoard/internal/state"
	"TeamBoard/internal/ui"
)

const discoverTimeout = 3 * time.Second

var (
	sessionFlag string
	joinFlag    string
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open a whiteboard window",
	Long: `Open a whiteboard window for a session.

Use --session to name the session directly or --join with a teamboard:// link
printed by "teamboard relay". Joining a link always uses the websocket relay
it points at.`,
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "session id to open")
	boardCmd.Flags().StringVarP(&joinFlag, "join", "j", "", "teamboard:// share link to join")
	boardCmd.MarkFlagsMutuallyExclusive("session", "join")
}

func runBoard(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sessionID, err := resolveSession(cfg, sessionFlag, joinFlag)
	if err != nil {
		return err
	}

	transport, relayURL, err := openTransport(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer transport.Close()

	s, err := openSession(cfg, sessionID, transport, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	gen, err := ai.New(cfg.AI, logger)
	if err != nil {
		return err
	}

	ui.RunApp(ui.Deps{
		Session:   s,
		Ideas:     gen,
		Exporter:  export.NewExporter(cfg.Export, cfg.Canvas, logger),
		ShareLink: shareLinkFor(relayURL, sessionID),
		Width:     cfg.Canvas.Width,
		Height:    cfg.Canvas.Height,
		Logger:    logger,
	})
	return nil
}

// resolveSession picks the session id from the flags. A share link also
// switches the transport to the relay it names.
func resolveSession(cfg *config.Config, session, link string) (string, error) {
	if link != "" {
		relay, id, err := boardnet.ParseShareLink(link)
		if err != nil {
			return "", err
		}
		cfg.Transport.Kind = config.TransportWS
		cfg.Transport.RelayURL = relay
		return id, nil
	}
	if session == "" {
		return "", errors.New("one of --session or --join is required")
	}
	return session, nil
}

// openTransport connects the configured backend. For the websocket relay it
// also returns the URL it dialled.
func openTransport(ctx context.Context, cfg *config.Config, logger *zap.Logger) (boardnet.Transport, string, error) {
	switch cfg.Transport.Kind {
	case config.TransportNATS:
		name := "teamboard-" + cfg.Identity.DisplayName
		t, err := boardnet.ConnectNATS(cfg.Transport.NATSURL, name, logger)
		if err != nil {
			return nil, "", err
		}
		return t, "", nil
	case config.TransportWS:
		relay := cfg.Transport.RelayURL
		if relay == "" && cfg.Transport.Discover {
			found, err := boardnet.Discover(ctx, discoverTimeout, logger)
			if err != nil {
				return nil, "", err
			}
			relay = found
		}
		t, err := boardnet.DialWS(ctx, relay, cfg.Transport.SendQueue, logger)
		if err != nil {
			return nil, "", err
		}
		return t, relay, nil
	case config.TransportMemory:
		logger.Warn("memory transport selected, the board will not be shared")
		return boardnet.NewMemoryBus(), "", nil
	default:
		return nil, "", fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
	}
}

func openSession(cfg *config.Config, sessionID string, t boardnet.Transport, logger *zap.Logger) (*board.Session, error) {
	identity := cfg.Identity.ID
	if identity == "" {
		identity = cfg.Identity.DisplayName
	}
	return board.Open(board.Options{
		SessionID:    sessionID,
		Origin:       identity + "/" + state.NewID(),
		Transport:    t,
		HistoryLimit: cfg.Canvas.HistoryLimit,
		Logger:       logger,
	})
}

// shareLinkFor turns a relay websocket URL back into a share link.
func shareLinkFor(relayURL, sessionID string) string {
	if relayURL == "" {
		return ""
	}
	u, err := url.Parse(relayURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return boardnet.ShareScheme + u.Host + "/" + sessionID
}
