package remote

import (
	"context"
)

const probeCommand = "echo 'server is up'"

// Prober checks whether a host accepts ssh connections.
type Prober struct {
	channel *Channel
}

func NewProber(channel *Channel) *Prober {
	return &Prober{channel: channel}
}

// Probe returns false on any failure; an unreachable host is expected while
// it reboots.
func (p *Prober) Probe(ctx context.Context, target string) bool {
	_, err := p.channel.RunWith(ctx, target, probeCommand, "-o", "ConnectTimeout=10")
	if err != nil {
		logger.Debugf("probe of %s failed: %v", target, err)
		return false
	}
	return true
}
