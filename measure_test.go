package facemesh

import (
	"image"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeasure_KnownTriangle(t *testing.T) {
	m := Measure(Point{0, 0}, Point{3, 4}, nil)

	assert.Equal(t, 5.0, m.Length)
	assert.Equal(t, Point{1, 2}, m.Mid)
	assert.Equal(t, [6]int{0, 0, 3, 4, 1, 2}, m.Info())
	assert.Nil(t, m.Frame)
}

func TestMeasure_SamePoint(t *testing.T) {
	p := Point{17, 42}
	m := Measure(p, p, nil)

	assert.Equal(t, 0.0, m.Length)
	assert.Equal(t, p, m.Mid)
}

func TestMeasure_ShouldBeSymmetric(t *testing.T) {
	pairs := [][2]Point{
		{{0, 0}, {3, 4}},
		{{10, 250}, {640, 3}},
		{{123, 456}, {789, 12}},
		{{7, 7}, {8, 9}},
	}
	for _, pair := range pairs {
		a := Measure(pair[0], pair[1], nil)
		b := Measure(pair[1], pair[0], nil)
		assert.Equal(t, a.Length, b.Length)
		assert.Equal(t, a.Mid, b.Mid)
	}
}

func TestMeasure_MidpointFloorDivision(t *testing.T) {
	assert.Equal(t, Point{2, 3}, Measure(Point{0, 0}, Point{5, 7}, nil).Mid)
	assert.Equal(t, Point{-1, -2}, Measure(Point{0, 0}, Point{-1, -3}, nil).Mid)
}

func TestMeasure_LargeCoordinates(t *testing.T) {
	p := Point{math.MaxInt - 1, 0}
	m := Measure(p, p, nil)
	assert.Equal(t, p, m.Mid)
	assert.Equal(t, 0.0, m.Length)

	m = Measure(Point{math.MaxInt, math.MinInt}, Point{math.MaxInt - 1, math.MinInt}, nil)
	assert.Equal(t, Point{math.MaxInt - 1, math.MinInt}, m.Mid)
}

func TestMeasure_ShouldAnnotateFrame(t *testing.T) {
	frame := newFrame(120, 80, gray)

	m := Measure(Point{20, 40}, Point{100, 40}, frame)
	assert.Same(t, frame, m.Frame)

	assertColor(t, markColor, frame.NRGBAAt(20, 40))
	assertColor(t, markColor, frame.NRGBAAt(100, 40))
	assertColor(t, markColor, frame.NRGBAAt(60, 40))
	// covered by the circle radius around the endpoint
	assertColor(t, markColor, frame.NRGBAAt(20, 50))
	// on the connecting line, outside of any circle
	assertColor(t, markColor, frame.NRGBAAt(40, 40))

	assert.Equal(t, gray, frame.NRGBAAt(0, 0))
	assert.Equal(t, gray, frame.NRGBAAt(40, 60))
}

func TestMeasure_ConcurrentCalls(t *testing.T) {
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			frame := image.NewNRGBA(image.Rect(0, 0, 64, 64))
			m := Measure(Point{i, 0}, Point{i + 3, 4}, frame)
			assert.Equal(t, 5.0, m.Length)
		}(i)
	}
	wg.Wait()
}
