package domain

import (
	"context"
	"strings"
)

type DumpCommand struct {
	Database   string
	Table      string
	OutputPath string
	Program    string
	Args       []string
}

// String renders the command the way a shell user would type it, with the
// password masked in both its -p<pw> and --password=<pw> forms.
func (c DumpCommand) String() string {
	parts := make([]string, 0, len(c.Args)+3)
	parts = append(parts, c.Program)
	for _, arg := range c.Args {
		switch {
		case strings.HasPrefix(arg, "--password="):
			arg = "--password=******"
		case strings.HasPrefix(arg, "-p") && len(arg) > 2:
			arg = "-p******"
		}
		parts = append(parts, arg)
	}
	parts = append(parts, ">", c.OutputPath)
	return strings.Join(parts, " ")
}

type Dumper interface {
	Dump(ctx context.Context, cmd DumpCommand) error
}
