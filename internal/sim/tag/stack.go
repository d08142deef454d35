package tag

import "tickcraft.ai/internal/sim/item"

// EncodeStack writes a stack as {"id","count"[,"damage","potion","name"]}.
func EncodeStack(s item.Stack) Compound {
	c := Compound{}
	if s.IsEmpty() {
		return c
	}
	c.PutString("id", s.Item)
	c.PutInt("count", int64(s.Count))
	if s.Damage != 0 {
		c.PutInt("damage", int64(s.Damage))
	}
	if s.Potion != "" {
		c.PutString("potion", s.Potion)
	}
	if s.Name != "" {
		c.PutString("name", s.Name)
	}
	return c
}

// DecodeStack is the inverse of EncodeStack. Anything unreadable yields an
// empty stack and ok=false; callers log and carry on.
func DecodeStack(c Compound) (item.Stack, bool) {
	id, ok := c.GetString("id")
	if !ok || id == "" {
		return item.Empty, false
	}
	n, ok := c.GetInt("count")
	if !ok || n <= 0 {
		return item.Empty, false
	}
	return item.Stack{
		Item:   id,
		Count:  int(n),
		Damage: c.IntOr("damage", 0),
		Potion: c.StringOr("potion", ""),
		Name:   c.StringOr("name", ""),
	}, true
}

// EncodeSlots stores the non-empty slots of items as a list of
// {"slot": i, ...stack}.
func EncodeSlots(items []item.Stack) []Value {
	out := make([]Value, 0, len(items))
	for i, s := range items {
		if s.IsEmpty() {
			continue
		}
		c := EncodeStack(s)
		c.PutInt("slot", int64(i))
		out = append(out, Nested(c))
	}
	return out
}

// DecodeSlots fills dst from a list written by EncodeSlots. It returns the
// number of entries that had to be dropped.
func DecodeSlots(list []Value, dst []item.Stack) (dropped int) {
	for i := range dst {
		dst[i] = item.Empty
	}
	for _, v := range list {
		if v.Kind != KindCompound {
			dropped++
			continue
		}
		slot, ok := v.Compound.GetInt("slot")
		if !ok || slot < 0 || int(slot) >= len(dst) {
			dropped++
			continue
		}
		s, ok := DecodeStack(v.Compound)
		if !ok {
			dropped++
			continue
		}
		dst[slot] = s
	}
	return dropped
}
