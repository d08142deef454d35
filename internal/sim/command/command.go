// Package command parses the administrative text grammar into world
// commands. Parsing checks syntax and catalog ids; the returned command
// re-checks world state when it is applied and changes nothing on failure.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tickcraft.ai/internal/sim/catalogs"
	world "tickcraft.ai/internal/sim/world"
)

// ErrInvalid marks malformed command text.
var ErrInvalid = errors.New("invalid command")

type applyFunc func(w *world.World) (string, error)

type parseFunc func(cats *catalogs.Catalogs, args []string) (applyFunc, error)

type verb struct {
	usage string
	parse parseFunc
}

var verbs = map[string]verb{
	"setblock":   {"setblock <x> <y> <z> <block> [facing]", parseSetBlock},
	"remove":     {"remove <x> <y> <z>", parseRemove},
	"give":       {"give <x> <y> <z> <item[:potion]> [count] [slot]", parseGive},
	"take":       {"take <x> <y> <z> <slot> [count]", parseTake},
	"place":      {"place <x> <y> <z> <item>", parsePlace},
	"light":      {"light <x> <y> <z> on|off", parseLight},
	"player":     {"player join|move <name> <x> <y> <z>", parsePlayer},
	"open":       {"open <player> <x> <y> <z>", parseOpen},
	"close":      {"close <player>", parseClose},
	"disconnect": {"disconnect <player>", parseDisconnect},
	"power":      {"power <x> <y> <z> on|off", parsePower},
	"weather":    {"weather clear|rain", parseWeather},
	"bee":        {"bee spawn <x> <y> <z> [nectar] | bee enter <x> <y> <z> [mob] | bee harvest <x> <y> <z>", parseBee},
	"mob":        {"mob <kind> <x> <y> <z> [hostile]", parseMob},
	"effects":    {"effects <x> <y> <z> <primary> [secondary]", parseEffects},
	"drop":       {"drop <x> <y> <z> <item[:potion]> [count]", parseDrop},
	"inspect":    {"inspect <x> <y> <z>", parseInspect},
	"contents":   {"contents <x> <y> <z>", parseContents},
	"snapshot":   {"snapshot", parseSnapshot},
}

// Verbs lists the command names in sorted order.
func Verbs() []string {
	out := make([]string, 0, len(verbs))
	for k := range verbs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Usage returns the argument synopsis of a verb.
func Usage(name string) (string, bool) {
	v, ok := verbs[name]
	return v.usage, ok
}

type cmd struct {
	text  string
	apply applyFunc
}

func (c cmd) Text() string                         { return c.text }
func (c cmd) Apply(w *world.World) (string, error) { return c.apply(w) }

// Parse turns one line into a command. The command's Text is the line with
// whitespace collapsed, so parsing Text again yields the same command.
func Parse(cats *catalogs.Catalogs, line string) (world.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrInvalid)
	}
	name := strings.ToLower(fields[0])
	v, ok := verbs[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalid, fields[0])
	}
	apply, err := v.parse(cats, fields[1:])
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			return nil, fmt.Errorf("%w (usage: %s)", err, v.usage)
		}
		return nil, fmt.Errorf("%w: %w (usage: %s)", ErrInvalid, err, v.usage)
	}
	fields[0] = name
	return cmd{text: strings.Join(fields, " "), apply: apply}, nil
}

// ParseAll parses every non-blank line that does not start with '#'.
func ParseAll(cats *catalogs.Catalogs, lines []string) ([]world.Command, error) {
	var out []world.Command
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		c, err := Parse(cats, l)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}
