// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/dualcore/pkg/cli/cmds/ring"
	_ "github.com/robotalks/dualcore/pkg/cli/cmds/sems"
)
