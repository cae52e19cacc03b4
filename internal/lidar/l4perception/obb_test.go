package l4perception

import (
	"errors"
	"math"
	"testing"
)

func TestBuildOrientedBoundingBox_Empty(t *testing.T) {
	_, err := BuildOrientedBoundingBox(Cluster{})
	if !errors.Is(err, ErrEmptyCluster) {
		t.Fatalf("expected ErrEmptyCluster, got %v", err)
	}
}

func TestBuildOrientedBoundingBox_SinglePoint(t *testing.T) {
	obb, err := BuildOrientedBoundingBox(Cluster{Points: PointSet{{X: 5.0, Y: 10.0, Z: 1.5}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obb.CenterX != 5.0 || obb.CenterY != 10.0 || obb.CenterZ != 1.5 {
		t.Errorf("Expected center=(5, 10, 1.5), got (%.2f, %.2f, %.2f)",
			obb.CenterX, obb.CenterY, obb.CenterZ)
	}
	if obb.Length != 0 || obb.Width != 0 || obb.Height != 0 {
		t.Errorf("Expected zero extents for single point, got (%.2f, %.2f, %.2f)",
			obb.Length, obb.Width, obb.Height)
	}
}

func TestBuildOrientedBoundingBox_AlignedWithXAxis(t *testing.T) {
	points := PointSet{
		{X: 0.0, Y: 5.0, Z: 1.0},
		{X: 1.0, Y: 5.0, Z: 1.0},
		{X: 2.0, Y: 5.0, Z: 1.0},
		{X: 3.0, Y: 5.0, Z: 1.0},
	}

	obb, err := BuildOrientedBoundingBox(Cluster{Points: points})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(obb.CenterX-1.5) > 0.01 || math.Abs(obb.CenterY-5.0) > 0.01 {
		t.Errorf("Expected center≈(1.5, 5.0), got (%.2f, %.2f)", obb.CenterX, obb.CenterY)
	}
	if math.Abs(obb.Length-3.0) > 0.01 {
		t.Errorf("Expected Length≈3.0, got %.2f", obb.Length)
	}
	if obb.Width > 0.01 {
		t.Errorf("Expected Width≈0 for collinear points, got %.2f", obb.Width)
	}
	if math.Abs(obb.HeadingRad) > 0.01 {
		t.Errorf("Expected HeadingRad≈0, got %.2f", obb.HeadingRad)
	}
}

func TestBuildOrientedBoundingBox_AlignedWith45Degrees(t *testing.T) {
	points := PointSet{
		{X: 0.0, Y: 0.0, Z: 1.0},
		{X: 1.0, Y: 1.0, Z: 1.0},
		{X: 2.0, Y: 2.0, Z: 1.0},
		{X: 3.0, Y: 3.0, Z: 1.0},
	}

	obb, err := BuildOrientedBoundingBox(Cluster{Points: points})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(obb.HeadingRad-math.Pi/4) > 0.01 {
		t.Errorf("Expected HeadingRad≈π/4, got %.4f", obb.HeadingRad)
	}
	if math.Abs(obb.Length-3*math.Sqrt2) > 0.01 {
		t.Errorf("Expected Length≈%.3f, got %.3f", 3*math.Sqrt2, obb.Length)
	}
	if math.Abs(obb.CenterX-1.5) > 0.01 || math.Abs(obb.CenterY-1.5) > 0.01 {
		t.Errorf("Expected center≈(1.5, 1.5), got (%.2f, %.2f)", obb.CenterX, obb.CenterY)
	}
}

func TestBuildOrientedBoundingBox_AlignedWithYAxis(t *testing.T) {
	points := PointSet{
		{X: 2.0, Y: 0.0, Z: 0.0},
		{X: 2.0, Y: 4.0, Z: 2.0},
		{X: 2.1, Y: 2.0, Z: 1.0},
	}

	obb, err := BuildOrientedBoundingBox(Cluster{Points: points})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(math.Abs(obb.HeadingRad)-math.Pi/2) > 0.05 {
		t.Errorf("Expected |HeadingRad|≈π/2, got %.4f", obb.HeadingRad)
	}
	if math.Abs(obb.Height-2.0) > 1e-12 || math.Abs(obb.CenterZ-1.0) > 1e-12 {
		t.Errorf("Expected Height=2 CenterZ=1, got %.3f %.3f", obb.Height, obb.CenterZ)
	}
}

func TestBuildOrientedBoundingBox_RotatedRectangle(t *testing.T) {
	// A 4m x 2m car outline rotated by 30°.
	const heading = math.Pi / 6
	cos, sin := math.Cos(heading), math.Sin(heading)
	var points PointSet
	for i := 0; i <= 40; i++ {
		for j := 0; j <= 20; j++ {
			u := float64(i)*0.1 - 2
			v := float64(j)*0.1 - 1
			points = append(points, Point{X: 10 + u*cos - v*sin, Y: -3 + u*sin + v*cos, Z: 0.5})
		}
	}

	obb, err := BuildOrientedBoundingBox(Cluster{Points: points})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(obb.HeadingRad-heading) > 0.01 {
		t.Errorf("Expected HeadingRad≈%.4f, got %.4f", heading, obb.HeadingRad)
	}
	if math.Abs(obb.Length-4) > 0.01 || math.Abs(obb.Width-2) > 0.01 {
		t.Errorf("Expected 4 x 2 extents, got %.3f x %.3f", obb.Length, obb.Width)
	}
	if math.Abs(obb.CenterX-10) > 0.01 || math.Abs(obb.CenterY+3) > 0.01 {
		t.Errorf("Expected center≈(10, -3), got (%.3f, %.3f)", obb.CenterX, obb.CenterY)
	}
}
