package net

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
	"go.uber.org/zap"
)

const serviceType = "_teamboard._tcp"

// Advertise announces a relay listening on port to the local network. Stop the
// returned server with Shutdown.
func Advertise(port int, logger *zap.Logger) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, nil, []string{"TeamBoard relay"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	logger.Info("advertising relay", zap.String("service", serviceType), zap.String("host", host), zap.Int("port", port))
	return server, nil
}

// Discover browses the local network for relays and returns the websocket URL
// of the first one that answers within timeout.
func Discover(ctx context.Context, timeout time.Duration, logger *zap.Logger) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan string, 1)
	drained := make(chan struct{})

	go func() {
		defer close(drained)
		for e := range entries {
			if url, ok := relayURL(e); ok {
				select {
				case found <- url:
				default:
				}
			}
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-drained
	if err != nil {
		return "", fmt.Errorf("mDNS query failed: %w", err)
	}

	select {
	case url := <-found:
		logger.Info("discovered relay", zap.String("url", url))
		return url, nil
	default:
		return "", fmt.Errorf("no %s relay found within %s", serviceType, timeout)
	}
}

func relayURL(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	return "ws://" + e.AddrV4.String() + ":" + strconv.Itoa(e.Port) + "/ws", true
}
