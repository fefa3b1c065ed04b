// Package state loads the desired-state document glup converges a pool toward.
package state

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zph/glup/pkg/reconcile"
)

// Document is the desired state of a GlusterFS trusted pool
type Document struct {
	Peers   []string        `yaml:"peers,omitempty"`
	Volumes []Volume        `yaml:"volumes,omitempty"`
	Started []string        `yaml:"started,omitempty"`
	Bricks  []BrickAddition `yaml:"bricks,omitempty"`
}

// Volume is a volume that must exist
type Volume struct {
	Name      string   `yaml:"name"`
	Bricks    []string `yaml:"bricks"`
	Stripe    int      `yaml:"stripe,omitempty"`
	Replica   int      `yaml:"replica,omitempty"`
	DeviceVG  bool     `yaml:"device_vg,omitempty"`
	Transport string   `yaml:"transport,omitempty"`
	Start     bool     `yaml:"start,omitempty"`
	Force     bool     `yaml:"force,omitempty"`
}

// Spec converts the document entry to a reconciler request
func (v Volume) Spec() reconcile.VolumeSpec {
	return reconcile.VolumeSpec{
		Name:      v.Name,
		Bricks:    append([]string(nil), v.Bricks...),
		Stripe:    v.Stripe,
		Replica:   v.Replica,
		DeviceVG:  v.DeviceVG,
		Transport: v.Transport,
		Start:     v.Start,
		Force:     v.Force,
	}
}

// BrickAddition lists bricks that must be members of an existing volume
type BrickAddition struct {
	Volume string   `yaml:"volume"`
	Bricks []string `yaml:"bricks"`
}

// Load reads and validates a document from path
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("state file '%s' not found", path)
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes and validates a document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document's structure. Peer and volume name characters
// are left to the reconcilers, which report them as failed results.
func (d *Document) Validate() error {
	var errs []string

	for i, peer := range d.Peers {
		if strings.TrimSpace(peer) == "" {
			errs = append(errs, fmt.Sprintf("peers[%d]: empty name", i))
		}
	}

	seen := make(map[string]bool)
	for i, v := range d.Volumes {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("volumes[%d]: name is required", i))
		} else if seen[v.Name] {
			errs = append(errs, fmt.Sprintf("volumes[%d]: duplicate volume %s", i, v.Name))
		}
		seen[v.Name] = true

		errs = append(errs, validateBricks(fmt.Sprintf("volumes[%d]", i), v.Bricks)...)
		if v.Stripe < 0 || v.Replica < 0 {
			errs = append(errs, fmt.Sprintf("volumes[%d]: stripe and replica must not be negative", i))
		}
	}

	for i, name := range d.Started {
		if name == "" {
			errs = append(errs, fmt.Sprintf("started[%d]: empty name", i))
		}
	}

	for i, b := range d.Bricks {
		if b.Volume == "" {
			errs = append(errs, fmt.Sprintf("bricks[%d]: volume is required", i))
		}
		errs = append(errs, validateBricks(fmt.Sprintf("bricks[%d]", i), b.Bricks)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid state:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Empty reports whether the document declares nothing
func (d *Document) Empty() bool {
	return len(d.Peers) == 0 && len(d.Volumes) == 0 && len(d.Started) == 0 && len(d.Bricks) == 0
}

func validateBricks(field string, bricks []string) []string {
	if len(bricks) == 0 {
		return []string{field + ": at least one brick is required"}
	}
	var errs []string
	for j, b := range bricks {
		if !strings.Contains(b, ":") {
			errs = append(errs, fmt.Sprintf("%s.bricks[%d]: %q must be host:/path", field, j, b))
		}
	}
	return errs
}
