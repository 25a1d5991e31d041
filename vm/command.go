package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// A Command is one of Allocate, Access, Free and Reset.
type Command interface {
	fmt.Stringer

	isCommand()
}

// Allocate adds the lowest unallocated virtual page to the address space.
type Allocate struct{}

// Access touches a virtual page.
type Access struct {
	Page int
}

// Free releases the highest allocated virtual page.
type Free struct{}

// Reset brings the system back to its initial state.
type Reset struct{}

func (Allocate) isCommand() {}
func (Access) isCommand()   {}
func (Free) isCommand()     {}
func (Reset) isCommand()    {}

func (Allocate) String() string { return "allocate" }
func (c Access) String() string { return "access " + strconv.Itoa(c.Page) }
func (Free) String() string     { return "free" }
func (Reset) String() string    { return "reset" }

// ParseCommand reads the textual form of a command, as produced by the
// String method of the command. Keywords are case-insensitive.
func ParseCommand(text string) (Command, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	keyword, args := fields[0], fields[1:]

	switch keyword {
	case "allocate", "alloc":
		return noArgCommand(Allocate{}, keyword, args)
	case "free":
		return noArgCommand(Free{}, keyword, args)
	case "reset":
		return noArgCommand(Reset{}, keyword, args)
	case "access":
		if len(args) != 1 {
			return nil, fmt.Errorf("access takes exactly one page number")
		}

		page, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q: %w", args[0], err)
		}

		return Access{Page: page}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", keyword)
	}
}

func noArgCommand(cmd Command, keyword string, args []string) (Command, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("%s takes no argument", keyword)
	}

	return cmd, nil
}
