package gluster

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// IsLocalAddress reports whether name resolves to the managed node itself.
// Names that do not resolve are not local.
func (c *Client) IsLocalAddress(ctx context.Context, name string) (bool, error) {
	local, err := c.localAddresses(ctx)
	if err != nil {
		return false, err
	}

	out, err := c.exec.Execute(ctx, "getent", "ahosts", name)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.log.WithField("name", name).WithError(err).Debug("name does not resolve")
		return false, nil
	}

	for _, addr := range parseAddresses(out) {
		ip := net.ParseIP(addr)
		if ip == nil {
			continue
		}
		if ip.IsLoopback() || local[ip.String()] {
			return true, nil
		}
	}
	return false, nil
}

// localAddresses returns the node's own IP addresses, cached after the first
// successful lookup
func (c *Client) localAddresses(ctx context.Context) (map[string]bool, error) {
	c.localMu.Lock()
	defer c.localMu.Unlock()

	if c.localAddrs != nil {
		return c.localAddrs, nil
	}

	out, err := c.exec.Execute(ctx, "hostname", "--all-ip-addresses")
	if err != nil {
		return nil, fmt.Errorf("failed to list local addresses: %w", err)
	}

	addrs := make(map[string]bool)
	for _, field := range strings.Fields(out) {
		if ip := net.ParseIP(field); ip != nil {
			addrs[ip.String()] = true
		}
	}
	c.localAddrs = addrs
	return addrs, nil
}

// parseAddresses returns the first column of `getent ahosts` output
func parseAddresses(out string) []string {
	var addrs []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			addrs = append(addrs, fields[0])
		}
	}
	return addrs
}
