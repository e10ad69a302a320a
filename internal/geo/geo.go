// Package geo implements the spherical-earth math used for proximity checks
// and placement clamping.
package geo

import "math"

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6_371_000.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether p is finite and inside the lat/lon ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
func deg(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	φ1, φ2 := rad(a.Lat), rad(b.Lat)
	dφ := rad(b.Lat - a.Lat)
	dλ := rad(b.Lon - a.Lon)

	h := math.Sin(dφ/2)*math.Sin(dφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// Bearing returns the initial great-circle bearing from a to b in radians,
// measured clockwise from north.
func Bearing(a, b Point) float64 {
	φ1, φ2 := rad(a.Lat), rad(b.Lat)
	dλ := rad(b.Lon - a.Lon)

	y := math.Sin(dλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(dλ)
	return math.Atan2(y, x)
}

// Destination returns the point dist meters from origin along bearing (radians).
func Destination(origin Point, bearing, dist float64) Point {
	δ := dist / EarthRadius
	φ1, λ1 := rad(origin.Lat), rad(origin.Lon)

	φ2 := math.Asin(math.Sin(φ1)*math.Cos(δ) + math.Cos(φ1)*math.Sin(δ)*math.Cos(bearing))
	λ2 := λ1 + math.Atan2(
		math.Sin(bearing)*math.Sin(δ)*math.Cos(φ1),
		math.Cos(δ)-math.Sin(φ1)*math.Sin(φ2),
	)

	// Normalize longitude to [-180, 180).
	lon := math.Mod(deg(λ2)+540, 360) - 180
	return Point{Lat: deg(φ2), Lon: lon}
}

// ClampToRadius keeps p within radius meters of center. A point already
// inside the circle is returned unchanged; otherwise the result lies on the
// circle along the bearing from center to p.
func ClampToRadius(center, p Point, radius float64) Point {
	d := Distance(center, p)
	if d == 0 || d <= radius {
		return p
	}
	return Destination(center, Bearing(center, p), radius)
}
