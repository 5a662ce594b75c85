// Package node runs one core of the dual core console link: a line
// editing console whose accepted lines are written to the outbound ring,
// and whose output shows every frame read from the inbound ring.
package node

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/dualcore/pkg/console"
	"github.com/robotalks/dualcore/pkg/framework"
	"github.com/robotalks/dualcore/pkg/hsem"
	"github.com/robotalks/dualcore/pkg/shm"
	"github.com/robotalks/dualcore/pkg/shmring"
	"github.com/robotalks/dualcore/pkg/transport"
)

// maxInputBurst bounds the bytes consumed by one console poll.
const maxInputBurst = 64

// Core is one side of the link.
type Core struct {
	ID   hsem.CoreID
	Peer hsem.CoreID
	Tap  FrameTap

	cfg     *Config
	region  *shm.Region
	conn    transport.Conn
	bank    *hsem.Bank
	console *console.Console

	bootSem  *hsem.Sema
	readySem *hsem.Sema
	inIRQ    *hsem.Sema
	// outSem guards the unprotected outbox, nil when the outbox has its
	// own critical section.
	outSem *hsem.Sema

	outbox       shmring.Queue
	inbox        shmring.Queue
	inboxPending bool
	recvBuf      []byte
}

// New creates a Core over region, which must be at least cfg.Map.Size()
// bytes. conn is the console transport.
func New(cfg *Config, region *shm.Region, conn transport.Conn) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if need := cfg.Map.Size(); region.Size() < need {
		return nil, fmt.Errorf("shared region has %#x bytes, need %#x", region.Size(), need)
	}
	id, _ := cfg.CoreID()
	c := &Core{
		ID:      id,
		Peer:    hsem.CoreCM4,
		cfg:     cfg,
		region:  region,
		conn:    conn,
		bank:    hsem.NewBank(region.Slice(cfg.Map.SemBank, hsem.BankSize)),
		recvBuf: make([]byte, cfg.Map.FrameSize),
	}
	if !c.IsPrimary() {
		c.Peer = hsem.CoreCM7
	}
	if n := c.bank.Clear(id); n > 0 {
		glog.Warningf("%s: released %d stale semaphores", id, n)
	}
	c.bootSem = c.bank.Sema(SemBoot, id)
	c.readySem = c.bank.Sema(SemReady, id)
	if c.IsPrimary() {
		c.inIRQ = c.bank.Sema(SemSecondaryLink, id)
	} else {
		c.inIRQ = c.bank.Sema(SemPrimaryLink, id)
	}
	return c, nil
}

// IsPrimary tells if this is the core driving the boot handshake.
func (c *Core) IsPrimary() bool {
	return c.ID == hsem.CoreCM7
}

// Console returns the console, nil before Boot.
func (c *Core) Console() *console.Console {
	return c.console
}

// Booted tells if the handshake completed.
func (c *Core) Booted() bool {
	return c.console != nil
}

// Rings returns the state of the outbound and inbound rings.
func (c *Core) Rings() (out, in shmring.State) {
	if c.outbox != nil {
		out = c.outbox.State()
	}
	if c.inbox != nil {
		in = c.inbox.State()
	}
	return
}

func (c *Core) attachRings() {
	m := c.cfg.Map
	primary := c.region.Slice(m.PrimaryRing, m.RingSize())
	secondary := c.region.Slice(m.SecondaryRing, m.RingSize())
	cs := &hsem.CriticalSection{
		Sema:   c.bank.Sema(SemSecondaryLink, c.ID),
		ProcID: LinkProcID,
		Spin:   c.cfg.LockSpin,
	}
	if c.IsPrimary() {
		c.outbox = shmring.Assign(primary, m.FrameSize, m.Frames)
		c.outSem = c.bank.Sema(SemPrimaryLink, c.ID)
		c.inbox = shmring.AssignWithCS(secondary, m.FrameSize, m.Frames, cs)
	} else {
		c.outbox = shmring.AssignWithCS(secondary, m.FrameSize, m.Frames, cs)
		c.inbox = shmring.Assign(primary, m.FrameSize, m.Frames)
	}
}

func (c *Core) tap(dir Direction, frame []byte) {
	if c.Tap != nil {
		c.Tap.TapFrame(c.ID, dir, frame)
	}
}

// send is the console command handler.
func (c *Core) send(command string) {
	msg := []byte(command)
	if c.outSem != nil {
		if !c.outSem.Take(LinkProcID) {
			glog.Warningf("%s: link busy, drop %q", c.ID, command)
			return
		}
		defer c.outSem.Release(LinkProcID)
	}
	glog.V(4).Infof("%s: send %d bytes, ring %s", c.ID, len(msg), c.outbox.State())
	if err := c.outbox.Write(msg); err != nil {
		glog.Warningf("%s: drop %q: %v", c.ID, command, err)
		return
	}
	if size := c.cfg.Map.FrameSize; len(msg) > size {
		msg = msg[:size]
	}
	c.tap(Sent, msg)
}

// PollConsole consumes pending console input and returns the number of
// bytes consumed.
func (c *Core) PollConsole() int {
	if c.console == nil {
		return 0
	}
	n := 0
	for n < maxInputBurst && c.console.Input() {
		n++
	}
	return n
}

// PollInbox drains the inbound ring once the peer signalled it and prints
// every message. It returns the number of messages read.
func (c *Core) PollInbox() int {
	if c.inbox == nil {
		return 0
	}
	if c.inIRQ.TestAndClearIRQ() {
		c.inboxPending = true
	}
	if !c.inboxPending {
		return 0
	}
	count := 0
	for {
		n, err := c.inbox.Read(c.recvBuf)
		if err == shmring.ErrNoData {
			c.inboxPending = false
			break
		}
		if err != nil {
			glog.V(3).Infof("%s: inbox read: %v", c.ID, err)
			break
		}
		frame := shmring.TrimFrame(c.recvBuf[:n])
		c.tap(Received, frame)
		c.console.Output(fmt.Sprintf(">%s> %s\r\n", c.Peer, strings.ToValidUTF8(string(frame), "\ufffd")))
		count++
	}
	return count
}

// Flush flushes buffered console output.
func (c *Core) Flush() error {
	return transport.FlushIfNeeded(c.conn)
}

// AddToLoop implements framework.LoopAdder.
func (c *Core) AddToLoop(l *framework.Loop) {
	l.AddPoller(framework.PrLvInput, framework.PollFunc(func(ctx framework.PollContext) error {
		if c.PollConsole() > 0 {
			ctx.TriggerNext()
		}
		return nil
	}))
	l.AddPoller(framework.PrLvLink, framework.PollFunc(func(ctx framework.PollContext) error {
		if !c.IsPrimary() {
			c.AnswerBoot()
		}
		if c.PollInbox() > 0 || c.inboxPending {
			ctx.TriggerNext()
		}
		return nil
	}))
	l.AddPoller(framework.PrLvOutput, framework.PollFunc(func(framework.PollContext) error {
		return c.Flush()
	}))
	if r, ok := c.conn.(framework.Runnable); ok {
		l.AddRunnable(framework.NamedRun("console", r))
	}
}

// Run implements framework.Runnable. It boots the core and polls until
// ctx is canceled.
func (c *Core) Run(ctx context.Context) error {
	if err := c.Boot(ctx); err != nil {
		return err
	}
	loop := framework.NewLoop()
	if c.cfg.Interval > 0 {
		loop.Interval = c.cfg.Interval
	}
	loop.Add(c)
	return loop.Run(ctx)
}

// Close flushes the console, releases semaphores held by this core and
// closes the transport. The region is left to its owner.
func (c *Core) Close() error {
	c.Flush()
	c.bank.Clear(c.ID)
	return c.conn.Close()
}
