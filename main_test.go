package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"TeamBoard/internal/config"
	"TeamBoard/internal/export"
	boardnet "TeamBoard/internal/net"
	"TeamBoard/internal/state"
)

func TestResolveSession(t *testing.T) {
	cfg := config.Default()
	id, err := resolveSession(cfg, "plain", "")
	require.NoError(t, err)
	assert.Equal(t, "plain", id)
	assert.Equal(t, config.TransportNATS, cfg.Transport.Kind)

	id, err = resolveSession(cfg, "", "teamboard://10.0.0.5:8888/design")
	require.NoError(t, err)
	assert.Equal(t, "design", id)
	assert.Equal(t, config.TransportWS, cfg.Transport.Kind)
	assert.Equal(t, "ws://10.0.0.5:8888/ws", cfg.Transport.RelayURL)

	_, err = resolveSession(config.Default(), "", "")
	assert.Error(t, err)
	_, err = resolveSession(config.Default(), "", "http://example.com/x")
	assert.Error(t, err)
}

func TestShareLinkFor(t *testing.T) {
	assert.Equal(t, "teamboard://10.0.0.5:8888/design", shareLinkFor("ws://10.0.0.5:8888/ws", "design"))
	assert.Empty(t, shareLinkFor("", "design"))

	// The link round-trips to the same relay.
	relay, id, err := boardnet.ParseShareLink(shareLinkFor("ws://10.0.0.5:8888/ws", "design"))
	require.NoError(t, err)
	assert.Equal(t, "ws://10.0.0.5:8888/ws", relay)
	assert.Equal(t, "design", id)
}

func TestOpenTransport_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Kind = config.TransportMemory

	tr, relay, err := openTransport(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer tr.Close()
	assert.Empty(t, relay)
	assert.True(t, tr.Connected())

	s, err := openSession(cfg, "cli", tr, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "cli", s.ID())
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "saved.json")

	ext := state.Size{W: 20, H: 10}
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, export.WriteBoard(f, "retro", state.Snapshot{
		{ID: "r", Kind: state.KindRectangle, Origin: state.Point{X: 5, Y: 5}, Extent: &ext, Color: "#000000", StrokeWidth: 2},
	}))
	require.NoError(t, f.Close())

	out := filepath.Join(dir, "out")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"export", src, "--format", "png,pdf", "--out", out})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		exportFormats, exportOut = []string{"png"}, ""
	})
	require.NoError(t, rootCmd.Execute())

	for _, name := range []string{"whiteboard-retro.png", "whiteboard-retro.pdf"} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size())
		assert.Contains(t, stdout.String(), name)
	}
}
