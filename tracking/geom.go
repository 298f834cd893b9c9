package tracking

import (
	"image"
	"math"
)

// Point is a 2D pixel coordinate.
type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(p1.X-p2.X, 2) + math.Pow(p1.Y-p2.Y, 2))
}
