// Package synthetic generates deterministic point-cloud frames for demos and
// integration tests.
package synthetic

import (
	"context"
	"io"
	"math"
	"math/rand"
	"sync"

	"github.com/banshee-data/obstacle.report/internal/lidar/l4perception"
)

// Car is a box-shaped vehicle in sensor coordinates. X/Y is the centre of
// the footprint at frame zero; VX is the speed along X relative to the ego
// vehicle in metres per second.
type Car struct {
	X, Y                  float64
	Length, Width, Height float64
	VX                    float64
}

// HighwayConfig describes the scene.
type HighwayConfig struct {
	Frames    int     // frames before io.EOF; zero or less means unbounded
	FrameRate float64 // frames per second, drives car motion

	SensorHeight  float64 // road surface sits at Z = -SensorHeight
	GroundSpacing float64 // road sample spacing in metres
	GroundNoise   float64 // uniform vertical jitter on road samples
	SurfaceStep   float64 // car surface sample spacing in metres
	Clearance     float64 // gap between road and car body

	HalfLength float64 // road extends ±HalfLength along X
	MinY, MaxY float64 // road extent across lanes

	Cars    []Car
	Clutter int // returns scattered outside the road extent

	Seed int64
}

// DefaultHighwayConfig is a roof-mounted sensor on a car in the middle lane
// with one car ahead, one ahead in the right lane and one behind on the left.
func DefaultHighwayConfig() HighwayConfig {
	return HighwayConfig{
		Frames:        50,
		FrameRate:     10,
		SensorHeight:  1.7,
		GroundSpacing: 0.3,
		GroundNoise:   0.01,
		SurfaceStep:   0.2,
		Clearance:     0.4,
		HalfLength:    20,
		MinY:          -6,
		MaxY:          7,
		Cars: []Car{
			{X: 15, Y: 0, Length: 4.2, Width: 1.8, Height: 1.4, VX: -2},
			{X: 8, Y: -4, Length: 4.2, Width: 1.8, Height: 1.4, VX: 1},
			{X: -12, Y: 4, Length: 4.6, Width: 1.9, Height: 1.6, VX: 2.5},
		},
		Clutter: 200,
		Seed:    1,
	}
}

// Highway is a FrameSource producing the scene frame by frame. Frame n is a
// pure function of the configuration and n.
type Highway struct {
	cfg HighwayConfig

	mu   sync.Mutex
	next uint64
}

// NewHighway creates a scene source.
func NewHighway(cfg HighwayConfig) *Highway {
	return &Highway{cfg: cfg}
}

// NextFrame returns the next frame, or io.EOF after cfg.Frames frames.
func (h *Highway) NextFrame(ctx context.Context) (l4perception.PointSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	n := h.next
	if h.cfg.Frames > 0 && n >= uint64(h.cfg.Frames) {
		h.mu.Unlock()
		return nil, io.EOF
	}
	h.next++
	h.mu.Unlock()
	return h.Frame(n), nil
}

// CarsAt returns the car positions at frame n.
func (h *Highway) CarsAt(n uint64) []Car {
	dt := 0.0
	if h.cfg.FrameRate > 0 {
		dt = float64(n) / h.cfg.FrameRate
	}
	cars := make([]Car, len(h.cfg.Cars))
	for i, c := range h.cfg.Cars {
		c.X += c.VX * dt
		cars[i] = c
	}
	return cars
}

// Frame renders frame n: road, ego roof, cars, then clutter.
func (h *Highway) Frame(n uint64) l4perception.PointSet {
	cfg := h.cfg
	rng := rand.New(rand.NewSource(cfg.Seed + int64(n)))
	ground := -cfg.SensorHeight
	var points l4perception.PointSet

	if cfg.GroundSpacing > 0 {
		nx := int(2 * cfg.HalfLength / cfg.GroundSpacing)
		ny := int((cfg.MaxY - cfg.MinY) / cfg.GroundSpacing)
		for i := 0; i <= nx; i++ {
			for j := 0; j <= ny; j++ {
				x := -cfg.HalfLength + float64(i)*cfg.GroundSpacing
				y := cfg.MinY + float64(j)*cfg.GroundSpacing
				z := ground + (rng.Float64()*2-1)*cfg.GroundNoise
				points = append(points, point(x, y, z, rng))
			}
		}
	}

	// Roof and bonnet of the ego vehicle, just below the sensor.
	for x := -1.0; x <= 2.0; x += cfg.SurfaceStep {
		for y := -0.8; y <= 0.8; y += cfg.SurfaceStep {
			points = append(points, point(x, y, -0.5, rng))
		}
	}

	for _, c := range h.CarsAt(n) {
		points = appendBox(points, c, ground+cfg.Clearance, cfg.SurfaceStep, rng)
	}

	for i := 0; i < cfg.Clutter; i++ {
		// Beyond the road ends: trees, signs, buildings.
		x := cfg.HalfLength + 2 + rng.Float64()*30
		if rng.Intn(2) == 0 {
			x = -x
		}
		y := cfg.MinY + rng.Float64()*(cfg.MaxY-cfg.MinY)
		points = append(points, point(x, y, ground+rng.Float64()*4, rng))
	}
	return points
}

// appendBox samples the top and four sides of a car body whose underside
// sits at z0.
func appendBox(points l4perception.PointSet, c Car, z0, step float64, rng *rand.Rand) l4perception.PointSet {
	if step <= 0 {
		return points
	}
	x0, x1 := c.X-c.Length/2, c.X+c.Length/2
	y0, y1 := c.Y-c.Width/2, c.Y+c.Width/2
	z1 := z0 + c.Height
	nx := int(math.Round(c.Length / step))
	ny := int(math.Round(c.Width / step))
	nz := int(math.Round(c.Height / step))
	at := func(lo, hi float64, i, n int) float64 { return lo + (hi-lo)*float64(i)/float64(n) }

	for i := 0; i <= nx; i++ {
		for j := 0; j <= ny; j++ {
			points = append(points, point(at(x0, x1, i, nx), at(y0, y1, j, ny), z1, rng))
		}
	}
	for k := 0; k < nz; k++ {
		z := at(z0, z1, k, nz)
		for i := 0; i <= nx; i++ {
			x := at(x0, x1, i, nx)
			points = append(points, point(x, y0, z, rng), point(x, y1, z, rng))
		}
		for j := 1; j < ny; j++ {
			y := at(y0, y1, j, ny)
			points = append(points, point(x0, y, z, rng), point(x1, y, z, rng))
		}
	}
	return points
}

// point builds a return whose intensity falls off with range.
func point(x, y, z float64, rng *rand.Rand) l4perception.Point {
	intensity := 200 - int(math.Hypot(x, y)*3)
	if intensity < 50 {
		intensity = 50
	}
	return l4perception.Point{X: x, Y: y, Z: z, Intensity: float32(intensity + rng.Intn(30))}
}
