package workflow

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// privateBlocks are the RFC1918 (and adjacent loopback/link-local) ranges a
// webhook-type action's URL must not resolve into.
var privateBlocks = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, block, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		blocks = append(blocks, block)
	}
	return blocks
}()

// validateWebhookURL rejects non-HTTPS schemes, localhost, and RFC1918
// addresses for webhook-type actions (§4.8 Template safety).
func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("webhook url must use https")
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("webhook url has no host")
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("webhook url may not target localhost")
	}
	if ip := net.ParseIP(host); ip != nil {
		for _, block := range privateBlocks {
			if block.Contains(ip) {
				return fmt.Errorf("webhook url may not target a private address")
			}
		}
	}
	return nil
}
