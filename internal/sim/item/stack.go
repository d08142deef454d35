package item

// Stack is one slot's worth of items.
//
// The zero value is the empty marker. Count > 0 implies Item != "".
// Damage, Potion and Name are the only per-stack data this engine tracks;
// two stacks merge only when all of them match.
type Stack struct {
	Item   string
	Count  int
	Damage int
	Potion string
	Name   string
}

var Empty = Stack{}

func Of(id string, count int) Stack {
	if id == "" || count <= 0 {
		return Empty
	}
	return Stack{Item: id, Count: count}
}

func (s Stack) IsEmpty() bool { return s.Item == "" || s.Count <= 0 }

func (s Stack) Is(id string) bool { return !s.IsEmpty() && s.Item == id }

// Split removes up to n units from s and returns them as a new stack.
func (s *Stack) Split(n int) Stack {
	if s.IsEmpty() || n <= 0 {
		return Empty
	}
	if n > s.Count {
		n = s.Count
	}
	out := *s
	out.Count = n
	s.Shrink(n)
	return out
}

func (s *Stack) Grow(n int) { s.Count += n }

func (s *Stack) Shrink(n int) {
	s.Count -= n
	if s.Count <= 0 {
		*s = Empty
	}
}

// WithCount returns a copy of s carrying n units (empty when n <= 0).
func (s Stack) WithCount(n int) Stack {
	if s.Item == "" || n <= 0 {
		return Empty
	}
	s.Count = n
	return s
}

// SameItemAndData reports whether a and b may share a slot.
func SameItemAndData(a, b Stack) bool {
	return a.Item == b.Item && a.Damage == b.Damage && a.Potion == b.Potion && a.Name == b.Name
}

// Normalize maps every empty representation to the zero value.
func Normalize(s Stack) Stack {
	if s.IsEmpty() {
		return Empty
	}
	return s
}
