package gluster

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
)

// ErrUnavailable is returned by Probe when glusterfs cannot be managed on the node
var ErrUnavailable = errors.New("glusterfs is not available")

// MinimumVersion is the oldest release whose --xml output is supported
var MinimumVersion = version.Must(version.NewVersion("3.7"))

var versionPattern = regexp.MustCompile(`(?m)^glusterfs\s+(\S+)`)

// Capabilities describes the gluster installation on the managed node
type Capabilities struct {
	Binary  string
	Version *version.Version
}

// Probe checks the gluster CLI is installed and recent enough. Failures
// wrap ErrUnavailable.
func (c *Client) Probe(ctx context.Context) (*Capabilities, error) {
	out, err := c.exec.Execute(ctx, c.binary, "--version")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s on %s: %v", ErrUnavailable, c.binary, c.exec.Host(), err)
	}

	v, err := ParseVersion(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if v.LessThan(MinimumVersion) {
		return nil, fmt.Errorf("%w: glusterfs %s is older than %s", ErrUnavailable, v, MinimumVersion)
	}

	c.log.WithField("version", v.String()).Debug("glusterfs available")
	return &Capabilities{Binary: c.binary, Version: v}, nil
}

// ParseVersion extracts the release from `gluster --version` output
func ParseVersion(out string) (*version.Version, error) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
		return nil, fmt.Errorf("unrecognised gluster version output %q", first)
	}
	v, err := version.NewVersion(m[1])
	if err != nil {
		return nil, fmt.Errorf("invalid gluster version %q: %w", m[1], err)
	}
	return v, nil
}
