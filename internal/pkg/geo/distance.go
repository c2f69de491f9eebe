package geo

import (
	"math"

	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// distanceEpsilonKm absorbs trig rounding for coincident points.
	distanceEpsilonKm = 1e-9
)

var (
	ErrInvalidLatitude  = apperr.New(apperr.KindInvalidArgument, "latitude must be between -90 and 90")
	ErrInvalidLongitude = apperr.New(apperr.KindInvalidArgument, "longitude must be between -180 and 180")
)

// Coordinates is a point on the Earth's surface in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// Validate checks coordinate ranges.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// DistanceKm returns the great-circle distance between a and b.
// Both points must already be valid.
func DistanceKm(a, b Coordinates) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// clamp: rounding can push h slightly outside [0,1] for antipodal points
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	d := EarthRadiusKm * c
	if d < distanceEpsilonKm {
		return 0
	}
	return d
}

// Box is a latitude/longitude rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundingBox returns a rectangle that contains every point within
// radiusKm of center. It is a coarse prefilter for storage queries;
// DistanceKm decides final inclusion. Near the poles or across the
// antimeridian the box widens to the full longitude range.
func BoundingBox(center Coordinates, radiusKm float64) Box {
	angular := radiusKm / EarthRadiusKm
	dLat := toDegrees(angular)

	box := Box{
		MinLat: math.Max(-90, center.Latitude-dLat),
		MaxLat: math.Min(90, center.Latitude+dLat),
		MinLon: -180,
		MaxLon: 180,
	}

	if box.MinLat <= -90 || box.MaxLat >= 90 {
		return box
	}

	cosLat := math.Cos(toRadians(center.Latitude))
	ratio := math.Sin(angular) / cosLat
	if ratio >= 1 {
		return box
	}
	dLon := toDegrees(math.Asin(ratio))
	minLon := center.Longitude - dLon
	maxLon := center.Longitude + dLon
	if minLon < -180 || maxLon > 180 {
		return box
	}

	box.MinLon = minLon
	box.MaxLon = maxLon
	return box
}

// Contains reports whether c lies inside the box.
func (b Box) Contains(c Coordinates) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }
