package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"TeamBoard/internal/ai"
	"TeamBoard/internal/render"
)

var (
	ideasSession string
	ideasPlace   bool
	ideasWait    time.Duration
)

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Generate brainstorming ideas for a session",
	Long: `Generate up to five brainstorming ideas for a session and print them.

With --place the command joins the session, waits for the board from another
client and adds the ideas to it. Without a board from a peer the ideas would
replace whatever the others have, so nothing is placed when --wait runs out.`,
	RunE: runIdeas,
}

func init() {
	ideasCmd.Flags().StringVarP(&ideasSession, "session", "s", "", "session id")
	ideasCmd.Flags().BoolVar(&ideasPlace, "place", false, "add the ideas to the live board")
	ideasCmd.Flags().DurationVar(&ideasWait, "wait", 10*time.Second, "how long to wait for the live board")
	_ = ideasCmd.MarkFlagRequired("session")
}

func runIdeas(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gen, err := ai.New(cfg.AI, logger)
	if err != nil {
		return err
	}
	ideas, err := gen.Ideas(cmd.Context(), ideasSession)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "AI unavailable, using suggested ideas")
	}
	for i, idea := range ideas {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, idea)
	}
	if !ideasPlace {
		return nil
	}

	transport, _, err := openTransport(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer transport.Close()

	s, err := openSession(cfg, ideasSession, transport, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	// Nothing else changes a headless board, so the first change is a peer's
	// snapshot.
	received := make(chan struct{}, 1)
	stop := s.OnChange(func(render.Scene) {
		select {
		case received <- struct{}{}:
		default:
		}
	})
	ctx, cancel := context.WithTimeout(cmd.Context(), ideasWait)
	defer cancel()
	select {
	case <-received:
	case <-ctx.Done():
		stop()
		return fmt.Errorf("no board received for session %q within %s", ideasSession, ideasWait)
	}
	stop()

	added := s.AddIdeas(ideas)
	if f, ok := transport.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			logger.Warn("flush failed", zap.Error(err))
		}
	}
	logger.Info("placed ideas", zap.String("session", ideasSession), zap.Int("count", len(added)))
	return nil
}
