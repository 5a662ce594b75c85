package ring

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/dualcore/pkg/cli/sh"
	"github.com/robotalks/dualcore/pkg/shmring"
)

type ringStat struct {
	sh.Ring
	shmring.State
	Err string `json:"error,omitempty"`
}

func selectRings(c *ishell.Context) ([]sh.Ring, error) {
	s := sh.ShellFrom(c)
	if len(c.Args) == 0 || c.Args[0] == "all" {
		return s.Rings(), nil
	}
	r, err := s.FindRing(c.Args[0])
	if err != nil {
		return nil, err
	}
	return []sh.Ring{r}, nil
}

var (
	// StatCmd prints ring indices.
	StatCmd = ishell.Cmd{
		Name:    "stat",
		Aliases: []string{"st"},
		Help:    "[RING|all]",
		Func: sh.MustBeMapped(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			rings, err := selectRings(c)
			if err != nil {
				c.Err(err)
				return
			}
			stats := make([]ringStat, 0, len(rings))
			var w bytes.Buffer
			for _, r := range rings {
				stat := ringStat{Ring: r}
				stat.State, err = s.RingState(r)
				if err != nil {
					stat.Err = err.Error()
					fmt.Fprintf(&w, "%-9s @%#05x %s->%s: %v\n", r.Name, r.Offset, r.Writer, r.Reader, err)
				} else {
					fmt.Fprintf(&w, "%-9s @%#05x %s->%s: %s\n", r.Name, r.Offset, r.Writer, r.Reader, stat.State)
				}
				stats = append(stats, stat)
			}
			s.Print(c, stats, strings.TrimSuffix(w.String(), "\n"))
		}),
	}

	// ZeroCmd clears rings.
	ZeroCmd = ishell.Cmd{
		Name: "zero",
		Help: "RING|all",
		Func: sh.MustBeMapped(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("RING required"))
				return
			}
			rings, err := selectRings(c)
			if err != nil {
				c.Err(err)
				return
			}
			for _, r := range rings {
				sh.ShellFrom(c).Zero(r)
			}
			c.Println("OK")
		}),
	}

	// SendCmd writes a message as the ring's writer.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "RING TEXT...",
		Func: sh.MustBeMapped(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("RING and TEXT required"))
				return
			}
			s := sh.ShellFrom(c)
			r, err := s.FindRing(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if err = s.Send(r, strings.Join(c.Args[1:], " ")); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// RecvCmd reads a message as the ring's reader.
	RecvCmd = ishell.Cmd{
		Name:    "recv",
		Aliases: []string{"r"},
		Help:    "RING",
		Func: sh.MustBeMapped(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("RING required"))
				return
			}
			s := sh.ShellFrom(c)
			r, err := s.FindRing(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			msg, err := s.Recv(r)
			if err == shmring.ErrNoData {
				c.Println("(empty)")
				return
			}
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, map[string]string{"ring": r.Name, "message": msg}, msg)
		}),
	}
)

func init() {
	sh.AddCmds(
		&StatCmd,
		&ZeroCmd,
		&SendCmd,
		&RecvCmd,
	)
}
