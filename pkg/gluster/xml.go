package gluster

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/zph/glup/pkg/reconcile"
)

// cliOutput is the envelope of every `gluster --xml` response
type cliOutput struct {
	XMLName  xml.Name `xml:"cliOutput"`
	OpRet    int      `xml:"opRet"`
	OpErrno  int      `xml:"opErrno"`
	OpErrstr string   `xml:"opErrstr"`
	Output   string   `xml:"output"`

	Peers   []xmlPeer   `xml:"peerStatus>peer"`
	VolList []string    `xml:"volList>volume"`
	Volumes []xmlVolume `xml:"volInfo>volumes>volume"`
}

// xmlPeer is one entry of `gluster peer status --xml`
type xmlPeer struct {
	UUID       string   `xml:"uuid"`
	Hostname   string   `xml:"hostname"`
	Hostnames  []string `xml:"hostnames>hostname"`
	OtherNames []string `xml:"otherNames>hostname"`
	Connected  int      `xml:"connected"`
	StateStr   string   `xml:"stateStr"`
}

// xmlBrick is a brick as per `gluster volume info --xml`. Older releases
// only carry the brick as character data, newer ones add a name element.
type xmlBrick struct {
	Text string `xml:",chardata"`
	Name string `xml:"name"`
	UUID string `xml:"hostUuid"`
}

func (b xmlBrick) path() string {
	if b.Name != "" {
		return b.Name
	}
	return strings.TrimSpace(b.Text)
}

// xmlVolume is a volume as per `gluster volume info --xml`
type xmlVolume struct {
	Name         string     `xml:"name"`
	ID           string     `xml:"id"`
	Status       int        `xml:"status"`
	StatusStr    string     `xml:"statusStr"`
	TypeStr      string     `xml:"typeStr"`
	StripeCount  int        `xml:"stripeCount"`
	ReplicaCount int        `xml:"replicaCount"`
	Transport    int        `xml:"transport"`
	Bricks       []xmlBrick `xml:"bricks>brick"`
}

// Volume status codes reported in <status>
const (
	volumeCreated = 0
	volumeStarted = 1
	volumeStopped = 2
)

func (v xmlVolume) view() reconcile.Volume {
	bricks := make([]reconcile.Brick, 0, len(v.Bricks))
	for _, b := range v.Bricks {
		bricks = append(bricks, reconcile.Brick{Path: b.path()})
	}

	status := reconcile.VolumeCreated
	switch v.Status {
	case volumeStarted:
		status = reconcile.VolumeStarted
	case volumeStopped:
		status = reconcile.VolumeStopped
	}

	return reconcile.Volume{
		Name:      v.Name,
		ID:        v.ID,
		Type:      v.TypeStr,
		Bricks:    bricks,
		Status:    status,
		Replica:   v.ReplicaCount,
		Stripe:    v.StripeCount,
		Transport: transportName(v.Transport),
	}
}

func transportName(code int) string {
	switch code {
	case 1:
		return "rdma"
	case 2:
		return "tcp,rdma"
	default:
		return "tcp"
	}
}

// names returns every name a peer is known by
func (p xmlPeer) names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, group := range [][]string{{p.Hostname}, p.Hostnames, p.OtherNames} {
		for _, n := range group {
			n = strings.TrimSpace(n)
			if n != "" && !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// parseCLIOutput decodes a gluster XML response and turns a non-zero opRet
// into an error carrying opErrstr
func parseCLIOutput(raw string) (*cliOutput, error) {
	var out cliOutput
	if err := xml.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse gluster xml output: %w (output: %q)", err, strings.TrimSpace(raw))
	}

	if out.OpRet != 0 {
		msg := strings.TrimSpace(out.OpErrstr)
		if msg == "" {
			msg = strings.TrimSpace(out.Output)
		}
		return &out, &CommandError{Ret: out.OpRet, Errno: out.OpErrno, Message: msg}
	}

	return &out, nil
}

// CommandError is a gluster command that reported failure in its XML envelope
type CommandError struct {
	Ret     int
	Errno   int
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gluster returned %d (errno %d)", e.Ret, e.Errno)
	}
	return e.Message
}
