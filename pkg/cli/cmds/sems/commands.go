package sems

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/dualcore/pkg/cli/sh"
	"github.com/robotalks/dualcore/pkg/hsem"
)

type semLock struct {
	Index  int    `json:"index"`
	Core   string `json:"core"`
	ProcID uint8  `json:"procid"`
}

type coreIRQ struct {
	Core    string `json:"core"`
	Enabled uint32 `json:"enabled"`
	Status  uint32 `json:"status"`
}

var (
	// SemsCmd lists locked semaphores and interrupt masks.
	SemsCmd = ishell.Cmd{
		Name:    "sems",
		Aliases: []string{"hsem"},
		Help:    "",
		Func: sh.MustBeMapped(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			var w bytes.Buffer
			result := struct {
				Locks []semLock `json:"locks"`
				IRQs  []coreIRQ `json:"irqs"`
			}{Locks: []semLock{}}
			for n := 0; n < hsem.NumSemaphores; n++ {
				if core, procID, locked := s.Bank.Owner(n); locked {
					result.Locks = append(result.Locks, semLock{Index: n, Core: core.String(), ProcID: procID})
					fmt.Fprintf(&w, "sem%-2d locked by %s/%d\n", n, core, procID)
				}
			}
			if len(result.Locks) == 0 {
				fmt.Fprintln(&w, "no semaphore locked")
			}
			for _, core := range hsem.Cores() {
				enabled, status := s.Bank.IRQ(core)
				result.IRQs = append(result.IRQs, coreIRQ{Core: core.String(), Enabled: enabled, Status: status})
				fmt.Fprintf(&w, "%s: ier=%08x isr=%08x\n", core, enabled, status)
			}
			s.Print(c, result, strings.TrimSuffix(w.String(), "\n"))
		}),
	}

	// ClearCmd releases all semaphores held by a core.
	ClearCmd = ishell.Cmd{
		Name: "clear",
		Help: "CORE",
		Func: sh.MustBeMapped(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CORE required"))
				return
			}
			core, err := hsem.ParseCoreID(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("released %d\n", sh.ShellFrom(c).Bank.Clear(core))
		}),
	}
)

func init() {
	sh.AddCmds(
		&SemsCmd,
		&ClearCmd,
	)
}
