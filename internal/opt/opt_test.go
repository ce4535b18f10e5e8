package opt

// bits is a minimal candidate used across the package tests.
type bits struct {
	Evaluation
	On []bool
}

func (b *bits) Clone() *bits {
	c := &bits{Evaluation: b.Evaluation, On: make([]bool, len(b.On))}
	copy(c.On, b.On)
	return c
}

type line struct {
	id uint32
}

func (l line) ID() uint32 { return l.id }

func countOn(_ line, b *bits) float64 {
	n := 0.0
	for _, on := range b.On {
		if on {
			n++
		}
	}
	return n
}

// overTwo penalizes every bit beyond the second.
func overTwo(l line, b *bits) float64 {
	if n := countOn(l, b); n > 2 {
		return 2 - n
	}
	return 0
}
