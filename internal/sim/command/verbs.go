package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/entity"
	"tickcraft.ai/internal/sim/geom"
	"tickcraft.ai/internal/sim/item"
	world "tickcraft.ai/internal/sim/world"
)

func parseSetBlock(cats *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 5); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	id := strings.ToUpper(args[3])
	if !cats.Blocks.Known(id) {
		return nil, fmt.Errorf("unknown block %q", args[3])
	}
	facing := geom.NoFace
	if len(args) == 5 {
		if facing, err = geom.ParseFace(args[4]); err != nil {
			return nil, err
		}
	}
	return func(w *world.World) (string, error) {
		d, err := w.SetBlock(p, id, facing)
		if err != nil {
			return "", err
		}
		if d != nil {
			return fmt.Sprintf("placed %s at %s (device %s)", id, p, d.ID()), nil
		}
		return fmt.Sprintf("placed %s at %s", id, p), nil
	}, nil
}

func parseRemove(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 3, 3); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	return func(w *world.World) (string, error) {
		if w.BlockAt(p) == catalogs.Air {
			return "", fmt.Errorf("nothing at %s", p)
		}
		if _, err := w.SetBlock(p, catalogs.Air, geom.NoFace); err != nil {
			return "", err
		}
		return fmt.Sprintf("removed %s", p), nil
	}, nil
}

func parseGive(cats *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 6); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	tmpl, err := parseStack(cats, args[3])
	if err != nil {
		return nil, err
	}
	count, slot := 1, -1
	if len(args) >= 5 {
		if count, err = parseCount(args[4]); err != nil {
			return nil, err
		}
	}
	if len(args) == 6 {
		if slot, err = parseSlot(args[5]); err != nil {
			return nil, err
		}
	}
	return func(w *world.World) (string, error) {
		rest, err := w.Give(p, slot, tmpl.WithCount(count))
		if err != nil {
			return "", err
		}
		if rest == count {
			return "", fmt.Errorf("no room for %s at %s", tmpl.Item, p)
		}
		return fmt.Sprintf("gave %d %s (%d did not fit)", count-rest, tmpl.Item, rest), nil
	}, nil
}

func parseTake(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 5); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	slot, err := parseSlot(args[3])
	if err != nil {
		return nil, err
	}
	n := 64
	if len(args) == 5 {
		if n, err = parseCount(args[4]); err != nil {
			return nil, err
		}
	}
	return func(w *world.World) (string, error) {
		s, err := w.Take(p, slot, n)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("took %d %s", s.Count, s.Item), nil
	}, nil
}

func parsePlace(cats *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 4); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	id, err := parseItem(cats, args[3])
	if err != nil {
		return nil, err
	}
	return func(w *world.World) (string, error) {
		if err := w.PlaceFood(p, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("placed %s on campfire %s", id, p), nil
	}, nil
}

func parseLight(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 4); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	on, err := parseOnOff(args[3])
	if err != nil {
		return nil, err
	}
	return func(w *world.World) (string, error) {
		if err := w.LightCampfire(p, on); err != nil {
			return "", err
		}
		return fmt.Sprintf("campfire %s lit=%t", p, on), nil
	}, nil
}

func parsePlayer(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 5, 5); err != nil {
		return nil, err
	}
	name := args[1]
	at, err := parseVec(args[2:])
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(args[0]) {
	case "join":
		return func(w *world.World) (string, error) {
			if _, ok := w.PlayerByName(name); ok {
				return "", fmt.Errorf("player %s already joined", name)
			}
			p := w.JoinPlayer(name, at)
			return fmt.Sprintf("joined %s as %s", name, p.ID), nil
		}, nil
	case "move":
		return func(w *world.World) (string, error) {
			p, err := player(w, name)
			if err != nil {
				return "", err
			}
			if err := w.MovePlayer(p.ID, at); err != nil {
				return "", err
			}
			return fmt.Sprintf("moved %s", name), nil
		}, nil
	}
	return nil, fmt.Errorf("%w: player action %q", ErrInvalid, args[0])
}

func parseOpen(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 4); err != nil {
		return nil, err
	}
	name := args[0]
	p, err := parsePos(args[1:])
	if err != nil {
		return nil, err
	}
	return func(w *world.World) (string, error) {
		pl, err := player(w, name)
		if err != nil {
			return "", err
		}
		if err := w.OpenContainer(pl.ID, p); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s opened %s", name, p), nil
	}, nil
}

func parseClose(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 1, 1); err != nil {
		return nil, err
	}
	name := args[0]
	return func(w *world.World) (string, error) {
		pl, err := player(w, name)
		if err != nil {
			return "", err
		}
		if err := w.CloseContainer(pl.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s closed its menu", name), nil
	}, nil
}

func parseDisconnect(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 1, 1); err != nil {
		return nil, err
	}
	name := args[0]
	return func(w *world.World) (string, error) {
		pl, err := player(w, name)
		if err != nil {
			return "", err
		}
		if err := w.Disconnect(pl.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s disconnected", name), nil
	}, nil
}

func parsePower(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 4); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	on, err := parseOnOff(args[3])
	if err != nil {
		return nil, err
	}
	return func(w *world.World) (string, error) {
		if err := w.CheckPos(p); err != nil {
			return "", err
		}
		w.SetPower(p, on)
		return fmt.Sprintf("power %s %t", p, on), nil
	}, nil
}

func parseWeather(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 1, 1); err != nil {
		return nil, err
	}
	var rain bool
	switch strings.ToLower(args[0]) {
	case "rain":
		rain = true
	case "clear":
	default:
		return nil, fmt.Errorf("%w: weather %q", ErrInvalid, args[0])
	}
	return func(w *world.World) (string, error) {
		w.SetRaining(rain)
		return "weather " + strings.ToLower(args[0]), nil
	}, nil
}

func parseBee(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 5); err != nil {
		return nil, err
	}
	p, err := parsePos(args[1:])
	if err != nil {
		return nil, err
	}
	extra := ""
	if len(args) == 5 {
		extra = args[4]
	}
	switch strings.ToLower(args[0]) {
	case "spawn":
		if extra != "" && extra != "nectar" {
			return nil, fmt.Errorf("%w: expected nectar, got %q", ErrInvalid, extra)
		}
		nectar := extra == "nectar"
		return func(w *world.World) (string, error) {
			if err := w.CheckPos(p); err != nil {
				return "", err
			}
			m := w.SpawnMobAt(entity.KindBee, p.Center(), false, nectar, 10)
			return "spawned bee " + m.ID, nil
		}, nil
	case "enter":
		return func(w *world.World) (string, error) {
			id := extra
			if id == "" {
				if id = nearestBee(w, p); id == "" {
					return "", fmt.Errorf("no bee near %s", p)
				}
			}
			if err := w.BeeEnter(p, id); err != nil {
				return "", err
			}
			return fmt.Sprintf("bee %s entered %s", id, p), nil
		}, nil
	case "harvest":
		if extra != "" {
			return nil, fmt.Errorf("%w: harvest takes no mob", ErrInvalid)
		}
		return func(w *world.World) (string, error) {
			if err := w.Harvest(p); err != nil {
				return "", err
			}
			return fmt.Sprintf("harvested %s", p), nil
		}, nil
	}
	return nil, fmt.Errorf("%w: bee action %q", ErrInvalid, args[0])
}

func parseMob(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 5); err != nil {
		return nil, err
	}
	kind := strings.ToUpper(args[0])
	p, err := parsePos(args[1:])
	if err != nil {
		return nil, err
	}
	hostile := false
	if len(args) == 5 {
		if args[4] != "hostile" {
			return nil, fmt.Errorf("%w: expected hostile, got %q", ErrInvalid, args[4])
		}
		hostile = true
	}
	return func(w *world.World) (string, error) {
		if err := w.CheckPos(p); err != nil {
			return "", err
		}
		m := w.SpawnMobAt(kind, p.Center(), hostile, false, 20)
		return fmt.Sprintf("spawned %s %s", kind, m.ID), nil
	}, nil
}

func parseEffects(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 5); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	primary, secondary := effectArg(args[3]), ""
	if len(args) == 5 {
		secondary = effectArg(args[4])
	}
	return func(w *world.World) (string, error) {
		if err := w.SetBeaconEffects(p, primary, secondary); err != nil {
			return "", err
		}
		return fmt.Sprintf("beacon %s effects %q %q", p, primary, secondary), nil
	}, nil
}

func parseDrop(cats *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 4, 5); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	tmpl, err := parseStack(cats, args[3])
	if err != nil {
		return nil, err
	}
	count := 1
	if len(args) == 5 {
		if count, err = parseCount(args[4]); err != nil {
			return nil, err
		}
	}
	return func(w *world.World) (string, error) {
		if err := w.CheckPos(p); err != nil {
			return "", err
		}
		if err := w.DropItem(p.Center(), tmpl.WithCount(count)); err != nil {
			return "", err
		}
		return fmt.Sprintf("dropped %d %s at %s", count, tmpl.Item, p), nil
	}, nil
}

func parseInspect(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 3, 3); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	return func(w *world.World) (string, error) {
		in, err := w.Inspect(p)
		if err != nil {
			return "", err
		}
		b, err := json.Marshal(in)
		return string(b), err
	}, nil
}

func parseContents(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 3, 3); err != nil {
		return nil, err
	}
	p, err := parsePos(args)
	if err != nil {
		return nil, err
	}
	return func(w *world.World) (string, error) {
		slots, err := w.Contents(p)
		if err != nil {
			return "", err
		}
		parts := make([]string, len(slots))
		for i, s := range slots {
			if s.IsEmpty() {
				parts[i] = "-"
				continue
			}
			parts[i] = fmt.Sprintf("%s x%d", s.Item, s.Count)
		}
		return strings.Join(parts, ", "), nil
	}, nil
}

func parseSnapshot(_ *catalogs.Catalogs, args []string) (applyFunc, error) {
	if err := argc(args, 0, 0); err != nil {
		return nil, err
	}
	return func(w *world.World) (string, error) {
		if err := w.SaveSnapshot(); err != nil {
			return "", err
		}
		return fmt.Sprintf("snapshot queued at tick %d", w.CurrentTick()), nil
	}, nil
}

func player(w *world.World, name string) (*entity.Player, error) {
	p, ok := w.PlayerByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", world.ErrNoPlayer, name)
	}
	return p, nil
}

// nearestBee picks the closest bee to p, breaking ties by id.
func nearestBee(w *world.World, p geom.Pos) string {
	best, bestD := "", 0.0
	c := p.Center()
	for _, m := range w.Mobs() {
		if m.Kind != entity.KindBee {
			continue
		}
		d := m.Pos.DistSq(c)
		if best == "" || d < bestD {
			best, bestD = m.ID, d
		}
	}
	return best
}

func effectArg(s string) string {
	if strings.EqualFold(s, "none") {
		return ""
	}
	return strings.ToUpper(s)
}

func argc(args []string, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		return fmt.Errorf("%w: got %d arguments", ErrInvalid, len(args))
	}
	return nil
}

func parsePos(args []string) (geom.Pos, error) {
	var v [3]int
	for i := range v {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return geom.Pos{}, fmt.Errorf("%w: coordinate %q", ErrInvalid, args[i])
		}
		v[i] = n
	}
	return geom.P(v[0], v[1], v[2]), nil
}

func parseVec(args []string) (geom.Vec, error) {
	var v [3]float64
	for i := range v {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return geom.Vec{}, fmt.Errorf("%w: coordinate %q", ErrInvalid, args[i])
		}
		v[i] = f
	}
	return geom.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

func parseItem(cats *catalogs.Catalogs, s string) (string, error) {
	id := strings.ToUpper(s)
	if err := cats.Items.Check(id); err != nil {
		return "", err
	}
	return id, nil
}

// parseStack reads "ITEM" or "ITEM:POTION" as a one-unit stack.
func parseStack(cats *catalogs.Catalogs, s string) (item.Stack, error) {
	id, potion, _ := strings.Cut(s, ":")
	id, err := parseItem(cats, id)
	if err != nil {
		return item.Empty, err
	}
	return item.Stack{Item: id, Count: 1, Potion: strings.ToUpper(potion)}, nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: count %q", ErrInvalid, s)
	}
	return n, nil
}

func parseSlot(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: slot %q", ErrInvalid, s)
	}
	return n, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on|off, got %q", ErrInvalid, s)
}
