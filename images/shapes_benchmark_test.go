package images

import (
	"math/rand"
	"testing"
)

// BenchmarkIoU_NonOverlapping takes the early return for disjoint boxes.
func BenchmarkIoU_NonOverlapping(b *testing.B) {
	r1 := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	r2 := Rect{X: 200, Y: 200, Width: 100, Height: 100}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(r1, r2)
	}
}

func BenchmarkIoU_PartialOverlap(b *testing.B) {
	r1 := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	r2 := Rect{X: 50, Y: 50, Width: 100, Height: 100}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(r1, r2)
	}
}

// BenchmarkIoU_RandomPairs mixes overlapping and disjoint boxes the way a
// suppression pass over one frame does.
func BenchmarkIoU_RandomPairs(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	const n = 1024
	rects := make([]Rect, n)
	for i := range rects {
		rects[i] = Rect{
			X:      rng.Float32() * 1800,
			Y:      rng.Float32() * 1000,
			Width:  10 + rng.Float32()*200,
			Height: 10 + rng.Float32()*200,
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rects[i%n], rects[(i*7+1)%n])
	}
}

func BenchmarkCenterToRect(b *testing.B) {
	for i := 0; i < b.N; i++ {
		r := CenterToRect(0.5, 0.5, 0.2, 0.2, OriginBottomLeft)
		_ = ImageRectForNormalizedRect(r, 1920, 1080)
	}
}
