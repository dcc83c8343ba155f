package pick

// MaxCode is the largest RGB code a pick colour can carry.
const MaxCode uint32 = 0xFFFFFF

// ColorGenerator hands out sequential pick codes, never the clear colour and
// never zero.
type ColorGenerator struct {
	next  uint32
	clear uint32
}

func NewColorGenerator(clearCode uint32) *ColorGenerator {
	return &ColorGenerator{clear: clearCode & MaxCode}
}

// Reset restarts the sequence; called at the start of every frame.
func (g *ColorGenerator) Reset(clearCode uint32) {
	g.next = 0
	g.clear = clearCode & MaxCode
}

func (g *ColorGenerator) Next() uint32 {
	g.advance()
	if g.next == g.clear {
		g.advance()
	}
	return g.next
}

func (g *ColorGenerator) advance() {
	if g.next >= MaxCode {
		g.next = 1
		return
	}
	g.next++
}
