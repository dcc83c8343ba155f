package lod

// Selector walks an ordered list of detail levels.
type Selector struct {
	Levels []DetailLevel
}

// NewSelector copies and sorts levels.
func NewSelector(levels []DetailLevel) *Selector {
	cp := append([]DetailLevel(nil), levels...)
	Sort(cp)
	return &Selector{Levels: cp}
}

// Select returns the first level whose criteria the projected size meets, or
// the last level when none does. The metric is evaluated at most once. ok is
// false only when there are no levels.
func (s *Selector) Select(screenSize func() float64) (level DetailLevel, ok bool) {
	if s == nil || len(s.Levels) == 0 {
		return DetailLevel{}, false
	}
	size := screenSize()
	for _, l := range s.Levels {
		if l.Meets(size) {
			return l, true
		}
	}
	return s.Levels[len(s.Levels)-1], true
}

// Index is like Select but reports the position of the chosen level.
func (s *Selector) Index(screenSize float64) int {
	if s == nil || len(s.Levels) == 0 {
		return -1
	}
	for i, l := range s.Levels {
		if l.Meets(screenSize) {
			return i
		}
	}
	return len(s.Levels) - 1
}
