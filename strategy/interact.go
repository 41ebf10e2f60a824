package strategy

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// humanize performs brief randomized pointer movement and scrolling,
// both to resemble human browsing and to trigger lazy-loaded content.
// Interaction failures never abort extraction.
func humanize(p *rod.Page) {
	defer func() { _ = recover() }()

	for i := 0; i < 3; i++ {
		point := proto.Point{
			X: 80 + rand.Float64()*600,
			Y: 80 + rand.Float64()*400,
		}
		if err := p.Mouse.MoveLinear(point, 8); err != nil {
			return
		}
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)
	}

	// Two viewport scrolls with a pause, enough to wake lazy loaders.
	for i := 0; i < 2; i++ {
		if err := p.Mouse.Scroll(0, 400+rand.Float64()*300, 4); err != nil {
			return
		}
		time.Sleep(time.Duration(100+rand.Intn(200)) * time.Millisecond)
	}
}

// lightScroll nudges the page once. Used after the fixed settle delay
// on slow-rendering sites.
func lightScroll(p *rod.Page) {
	defer func() { _ = recover() }()
	_ = p.Mouse.Scroll(0, 300, 3)
	time.Sleep(150 * time.Millisecond)
}
