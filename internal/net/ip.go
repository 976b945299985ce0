package net

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ShareScheme prefixes board share links.
const ShareScheme = "teamboard://"

// GetOutgoingIP finds the preferred local IP address to put in share links.
func GetOutgoingIP(logger *zap.Logger) string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// No route out; fall back to the first non-loopback interface.
		return localIPFallback(logger)
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func localIPFallback(logger *zap.Logger) string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		logger.Warn("failed to list interface addresses", zap.Error(err))
		return "127.0.0.1"
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	logger.Warn("no suitable local IP found, share links will use loopback")
	return "127.0.0.1"
}

// ShareLink builds teamboard://host:port/session.
func ShareLink(host string, port int, sessionID string) string {
	return fmt.Sprintf("%s%s/%s", ShareScheme, net.JoinHostPort(host, strconv.Itoa(port)), sessionID)
}

// ParseShareLink splits a share link into the relay websocket URL and the
// session id.
func ParseShareLink(link string) (relayURL, sessionID string, err error) {
	rest, ok := strings.CutPrefix(link, ShareScheme)
	if !ok {
		return "", "", fmt.Errorf("not a %s link: %q", ShareScheme, link)
	}
	addr, session, _ := strings.Cut(strings.TrimSuffix(rest, "/"), "/")
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", "", fmt.Errorf("invalid relay address %q: %w", addr, err)
	}
	if session == "" {
		return "", "", fmt.Errorf("share link %q has no session", link)
	}
	return "ws://" + addr + "/ws", session, nil
}
