package geo

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle math.
const earthRadiusKm = 6371

// assumedSpeedKmh is the average travel speed used to turn a straight-line
// distance into a rough duration. Not traffic-aware.
const assumedSpeedKmh = 90

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within coordinate bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Estimate is a straight-line distance and duration approximation.
type Estimate struct {
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lon1 := a.Lng * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lon2 := b.Lng * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// EstimateRoute sums pairwise great-circle distances over the points in the
// order given and derives a duration from the assumed average speed.
// Fewer than 2 points yields a zero estimate.
func EstimateRoute(points []Point) Estimate {
	if len(points) < 2 {
		return Estimate{}
	}

	var total float64
	for i := 0; i < len(points)-1; i++ {
		total += Haversine(points[i], points[i+1])
	}

	return Estimate{
		DistanceKm:    total,
		DurationHours: total / assumedSpeedKmh,
	}
}
