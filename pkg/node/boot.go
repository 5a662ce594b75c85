package node

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dualcore/pkg/console"
)

// Boot runs the startup handshake, attaches the rings and starts the
// console.
//
// The primary pulses SemBoot until the secondary pulses SemReady. The
// secondary waits for SemBoot, zeroes both rings, attaches them, enables
// its inbound interrupt and pulses SemReady. Only the secondary zeroes the
// rings.
func (c *Core) Boot(ctx context.Context) error {
	if c.Booted() {
		return nil
	}
	var err error
	if c.IsPrimary() {
		err = c.bootPrimary(ctx)
	} else {
		err = c.bootSecondary(ctx)
	}
	if err != nil {
		return err
	}
	c.console = console.New(make([]byte, c.cfg.BufferSize), c.cfg.PromptOrDefault(),
		c.conn, c.conn, console.HandleCommandFunc(c.send))
	glog.Infof("%s: booted, peer %s", c.ID, c.Peer)
	return nil
}

func (c *Core) bootPrimary(ctx context.Context) error {
	c.readySem.ClearIRQ()
	c.readySem.EnableIRQ()
	defer c.readySem.DisableIRQ()
	c.inIRQ.ClearIRQ()
	c.inIRQ.EnableIRQ()

	glog.Infof("%s: waiting for %s", c.ID, c.Peer)
	err := c.waitFor(ctx, func() bool {
		if c.readySem.TestAndClearIRQ() {
			return true
		}
		if c.bootSem.FastTake() {
			c.bootSem.Release(0)
		}
		return false
	})
	if err != nil {
		return err
	}
	c.attachRings()
	return nil
}

func (c *Core) bootSecondary(ctx context.Context) error {
	c.bootSem.ClearIRQ()
	c.bootSem.EnableIRQ()

	glog.Infof("%s: waiting for %s", c.ID, c.Peer)
	if err := c.waitFor(ctx, c.bootSem.TestAndClearIRQ); err != nil {
		c.bootSem.DisableIRQ()
		return err
	}
	m := c.cfg.Map
	c.region.Zero(m.PrimaryRing, m.RingSize())
	c.region.Zero(m.SecondaryRing, m.RingSize())
	c.attachRings()
	c.inIRQ.ClearIRQ()
	c.inIRQ.EnableIRQ()
	c.signalReady()
	return nil
}

// AnswerBoot answers a primary which restarted after the secondary booted.
// The rings are kept.
func (c *Core) AnswerBoot() bool {
	if !c.Booted() || !c.bootSem.TestAndClearIRQ() {
		return false
	}
	glog.Infof("%s: %s restarted", c.ID, c.Peer)
	c.signalReady()
	return true
}

func (c *Core) signalReady() {
	if c.readySem.FastTake() {
		c.readySem.Release(0)
	}
}

func (c *Core) waitFor(ctx context.Context, cond func() bool) error {
	poll := c.cfg.BootPoll
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
