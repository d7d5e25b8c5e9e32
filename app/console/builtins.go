package console

import (
	"errors"
	"fmt"
	"strings"

	"github.com/plus3/luminara/ecs"
)

func builtins() []Command {
	return []Command{
		{
			Name: "help",
			Help: "list commands",
			Run:  helpCommand,
		},
		{
			Name: "entities",
			Help: "count live entities",
			Run: func(c *Console, args []string) (string, error) {
				return fmt.Sprintf("%d entities", c.app.World().Len()), nil
			},
		},
		{
			Name: "tables",
			Help: "list component tables and their sizes",
			Run:  tablesCommand,
		},
		{
			Name: "resources",
			Help: "list stored resources",
			Run: func(c *Console, args []string) (string, error) {
				return strings.Join(c.app.World().Stats().ResourceTypes, "\n"), nil
			},
		},
		{
			Name:  "stats",
			Usage: "stats [stage]",
			Help:  "show system timings",
			Run:   statsCommand,
		},
		{
			Name:  "lua",
			Usage: "lua <code>",
			Help:  "run a Lua chunk",
			Run:   luaCommand,
		},
	}
}

func helpCommand(c *Console, args []string) (string, error) {
	var sb strings.Builder
	for i, cmd := range c.Commands() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		fmt.Fprintf(&sb, "%-16s %s", usage, cmd.Help)
	}
	return sb.String(), nil
}

func tablesCommand(c *Console, args []string) (string, error) {
	stats := c.app.World().Stats()
	lines := make([]string, 0, len(stats.Tables))
	for _, t := range stats.Tables {
		lines = append(lines, fmt.Sprintf("%3d %-32s %d", t.ID, t.Name, t.Count))
	}
	return strings.Join(lines, "\n"), nil
}

func statsCommand(c *Console, args []string) (string, error) {
	filter := -1
	if len(args) > 0 {
		stage, err := ecs.ParseStage(args[0])
		if err != nil {
			return "", err
		}
		filter = int(stage)
	}

	stats := c.app.Schedule().Stats()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d systems, %d executions, tick %d", stats.SystemCount, stats.TotalExecutions, c.app.World().Tick())
	for _, sys := range stats.Systems {
		if filter >= 0 && int(sys.Stage) != filter {
			continue
		}
		fmt.Fprintf(&sb, "\n%-11s %-40s runs=%d avg=%s max=%s", sys.Stage, sys.Name, sys.ExecutionCount, sys.AvgDuration, sys.MaxDuration)
	}
	return sb.String(), nil
}

func luaCommand(c *Console, args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("usage: lua <code>")
	}
	return c.RunLua(strings.Join(args, " "))
}
