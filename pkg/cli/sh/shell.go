// Package sh provides the ishell based shared memory inspector.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/dualcore/pkg/hsem"
	"github.com/robotalks/dualcore/pkg/node"
	"github.com/robotalks/dualcore/pkg/shm"
	"github.com/robotalks/dualcore/pkg/shmring"
)

// ProcID is the process id the shell takes semaphores with, distinct
// from node.LinkProcID so the shell never shares a lock with a core.
const ProcID uint8 = 2

// DefaultLockSpin bounds waiting for a core holding a semaphore.
const DefaultLockSpin = 100000

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *node.Config
	Region *shm.Region
	Bank   *hsem.Bank
}

// Ring describes one ring of the memory map.
type Ring struct {
	Name      string      `json:"name"`
	Writer    hsem.CoreID `json:"-"`
	Reader    hsem.CoreID `json:"-"`
	Offset    int         `json:"offset"`
	Protected bool        `json:"protected"`
}

const (
	shellKey       = "$shell"
	unmappedPrompt = "[unmapped] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	commands []*ishell.Cmd
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *node.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unmappedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeMapped wraps command func requires the shared region.
func MustBeMapped(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Region == nil {
			c.Err(fmt.Errorf("shared memory not mapped"))
			return
		}
		fn(c)
	}
}

// Map maps the shared memory file of the config.
func (s *Shell) Map() error {
	if err := s.Config.Map.Validate(); err != nil {
		return err
	}
	region, err := shm.Map(s.Config.SHMPath, s.Config.Map.Size())
	if err != nil {
		return err
	}
	s.Attach(region)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", s.Config.SHMPath))
	return nil
}

// Attach uses an already mapped region.
func (s *Shell) Attach(region *shm.Region) {
	s.Region = region
	s.Bank = hsem.NewBank(region.Slice(s.Config.Map.SemBank, hsem.BankSize))
}

// Unmap releases the shared region.
func (s *Shell) Unmap() {
	if s.Region != nil {
		s.Region.Close()
		s.Region, s.Bank = nil, nil
		s.Shell.SetPrompt(unmappedPrompt)
	}
}

// Rings lists the rings of the memory map.
func (s *Shell) Rings() []Ring {
	m := s.Config.Map
	return []Ring{
		{Name: "primary", Writer: hsem.CoreCM7, Reader: hsem.CoreCM4, Offset: m.PrimaryRing},
		{Name: "secondary", Writer: hsem.CoreCM4, Reader: hsem.CoreCM7, Offset: m.SecondaryRing, Protected: true},
	}
}

// FindRing finds a ring by name or by the name of its writing core.
func (s *Shell) FindRing(name string) (Ring, error) {
	for _, r := range s.Rings() {
		if strings.HasPrefix(r.Name, name) || r.Writer.String() == name {
			return r, nil
		}
	}
	return Ring{}, fmt.Errorf("unknown ring %q", name)
}

func (s *Shell) ringRegion(r Ring) []byte {
	return s.Region.Slice(r.Offset, s.Config.Map.RingSize())
}

func (s *Shell) queue(r Ring, core hsem.CoreID) shmring.Queue {
	m := s.Config.Map
	if r.Protected {
		cs := &hsem.CriticalSection{
			Sema:   s.Bank.Sema(node.SemSecondaryLink, core),
			ProcID: ProcID,
			Spin:   DefaultLockSpin,
		}
		return shmring.AssignWithCS(s.ringRegion(r), m.FrameSize, m.Frames, cs)
	}
	return shmring.Assign(s.ringRegion(r), m.FrameSize, m.Frames)
}

// RingState reads the header of the ring.
func (s *Shell) RingState(r Ring) (shmring.State, error) {
	return shmring.Inspect(s.ringRegion(r))
}

// Zero clears the ring, dropping queued frames and geometry.
func (s *Shell) Zero(r Ring) {
	s.Region.Zero(r.Offset, s.Config.Map.RingSize())
}

// Send writes text into the ring as its writer and notifies the reader.
func (s *Shell) Send(r Ring, text string) error {
	q := s.queue(r, r.Writer)
	if r.Protected {
		return q.Write([]byte(text))
	}
	sema := s.Bank.Sema(node.SemPrimaryLink, r.Writer)
	if !sema.Take(ProcID) {
		return shmring.ErrCantLock
	}
	defer sema.Release(ProcID)
	return q.Write([]byte(text))
}

// Recv reads one frame as the ring's reader. The frame is taken away from
// the reading core.
func (s *Shell) Recv(r Ring) (string, error) {
	buf := make([]byte, s.Config.Map.FrameSize)
	n, err := s.queue(r, r.Reader).Read(buf)
	if err != nil {
		return "", err
	}
	return string(shmring.TrimFrame(buf[:n])), nil
}

// Print prints v as JSON in JSON mode, text otherwise.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Map(); err != nil {
		log.Fatalf("map %s failed: %v", s.Config.SHMPath, err)
	}
	defer s.Unmap()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(node.NewConfig()).Run(flag.Args()...)
}
