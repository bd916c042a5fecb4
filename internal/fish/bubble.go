package fish

import "math"

// Bubble is a rising particle; purely decorative.
type Bubble struct {
	X, Y   float64
	Size   int
	speed  float64
	wobble float64
}

// NewBubble starts a bubble at x on the tank floor.
func NewBubble(x float64, tank Tank, rng Rand) Bubble {
	return Bubble{
		X:      x,
		Y:      tank.Height - 1,
		Size:   1 + rng.Intn(3),
		speed:  2 + rng.Float64()*2.5,
		wobble: rng.Float64() * 2 * math.Pi,
	}
}

// Update advances the bubble and reports whether it is still under water.
func (b *Bubble) Update(dt float64, tank Tank) bool {
	b.Y -= b.speed * dt
	b.X += math.Sin(b.Y*0.3+b.wobble) * 0.08
	return b.Y >= tank.WaterTop
}
