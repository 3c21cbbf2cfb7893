package willowfx

import "sort"

// GradientKey is a keyframe at a normalized position in [0, 1].
type GradientKey[T any] struct {
	Pos   float64
	Value T
}

// NumberKey is a scalar keyframe.
type NumberKey = GradientKey[float64]

// ColorKey is an RGBA keyframe.
type ColorKey = GradientKey[Color]

// Gradient is a position-sorted sequence of keys answering "value at p" by
// linear interpolation between the bracketing pair. Keys at an equal
// position keep their insertion order; lookups land on the last of them.
type Gradient[T any] struct {
	keys []GradientKey[T]
	lerp func(a, b T, t float64) T
}

// NumberGradient interpolates scalars.
type NumberGradient = Gradient[float64]

// ColorGradient interpolates colors per channel, alpha included.
type ColorGradient = Gradient[Color]

// NewNumberGradient returns an empty scalar gradient.
func NewNumberGradient() *NumberGradient {
	return &Gradient[float64]{lerp: lerp}
}

// NewColorGradient returns an empty color gradient.
func NewColorGradient() *ColorGradient {
	return &Gradient[Color]{lerp: lerpColor}
}

// Add inserts a key, keeping keys sorted by position.
func (g *Gradient[T]) Add(pos float64, value T) {
	i := sort.Search(len(g.keys), func(i int) bool { return g.keys[i].Pos > pos })
	g.keys = append(g.keys, GradientKey[T]{})
	copy(g.keys[i+1:], g.keys[i:])
	g.keys[i] = GradientKey[T]{Pos: pos, Value: value}
}

// Clear removes every key.
func (g *Gradient[T]) Clear() {
	g.keys = g.keys[:0]
}

// Len returns the number of keys.
func (g *Gradient[T]) Len() int {
	return len(g.keys)
}

// Keys returns the sorted keys. The slice is owned by the gradient.
func (g *Gradient[T]) Keys() []GradientKey[T] {
	return g.keys
}

// At returns the interpolated value at pos, clamped to [0, 1]. The second
// result is false when the gradient is empty, in which case the caller keeps
// its prior state.
func (g *Gradient[T]) At(pos float64) (T, bool) {
	return sampleKeys(g.keys, clamp01(pos), g.lerp)
}

// sampleKeys interpolates over keys already sorted by position. Positions
// outside the key range take the nearest endpoint's value.
func sampleKeys[T any](keys []GradientKey[T], pos float64, lerpFn func(a, b T, t float64) T) (T, bool) {
	switch len(keys) {
	case 0:
		var zero T
		return zero, false
	case 1:
		return keys[0].Value, true
	}
	if pos <= keys[0].Pos {
		first := sort.Search(len(keys), func(i int) bool { return keys[i].Pos > keys[0].Pos })
		return keys[first-1].Value, true
	}
	last := len(keys) - 1
	if pos >= keys[last].Pos {
		return keys[last].Value, true
	}
	hi := sort.Search(len(keys), func(i int) bool { return keys[i].Pos > pos })
	lo := hi - 1
	span := keys[hi].Pos - keys[lo].Pos
	if span <= 0 {
		return keys[lo].Value, true
	}
	return lerpFn(keys[lo].Value, keys[hi].Value, (pos-keys[lo].Pos)/span), true
}

// numberGradientOf builds a sorted scalar gradient from authored keys.
func numberGradientOf(keys []NumberKey) *NumberGradient {
	g := NewNumberGradient()
	for _, k := range keys {
		g.Add(k.Pos, k.Value)
	}
	return g
}

// colorGradientOf builds a sorted color gradient from authored keys.
func colorGradientOf(keys []ColorKey) *ColorGradient {
	g := NewColorGradient()
	for _, k := range keys {
		g.Add(k.Pos, k.Value)
	}
	return g
}
