// Package geo містить геометрію маршрутів: лінії, охоплюючі прямокутники,
// відстані по великому колу, експорт у GeoJSON та проекцію Web Mercator.
package geo

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// EarthRadiusMeters - середній радіус Землі
const EarthRadiusMeters = 6371008.8

// LatLon - точка у градусах WGS84
type LatLon struct {
	Lat float64
	Lon float64
}

// Bounds - прямокутник, що охоплює маршрут
type Bounds struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// Center повертає середину прямокутника
func (b Bounds) Center() LatLon {
	return LatLon{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// LatSpan повертає висоту прямокутника в градусах
func (b Bounds) LatSpan() float64 { return b.MaxLat - b.MinLat }

// LonSpan повертає ширину прямокутника в градусах
func (b Bounds) LonSpan() float64 { return b.MaxLon - b.MinLon }

// LineString будує лінію маршруту (X - довгота, Y - широта).
// Непорожня лінія потребує щонайменше двох різних точок.
func LineString(points []LatLon) (geom.LineString, error) {
	ls, err := geom.NewLineString(sequence(points))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("error creating linestring: %w", err)
	}
	return ls, nil
}

// Geometry повертає геометрію маршруту: лінію, якщо в ньому є хоча б дві
// різні точки, точку, якщо всі точки збігаються, та порожню лінію для
// порожнього маршруту
func Geometry(points []LatLon) (geom.Geometry, error) {
	if len(points) == 0 {
		return geom.LineString{}.AsGeometry(), nil
	}
	if !hasDistinct(points) {
		pt, err := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: points[0].Lon, Y: points[0].Lat},
			Type: geom.DimXY,
		})
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("error creating point: %w", err)
		}
		return pt.AsGeometry(), nil
	}
	ls, err := LineString(points)
	if err != nil {
		return geom.Geometry{}, err
	}
	return ls.AsGeometry(), nil
}

// BoundsOf повертає прямокутник, що охоплює всі точки лінії; false для порожньої
func BoundsOf(ls geom.LineString) (Bounds, bool) {
	return boundsOfSequence(ls.Coordinates())
}

// BoundsOfPoints - BoundsOf для точок, які ще не зібрано в лінію
func BoundsOfPoints(points []LatLon) (Bounds, bool) {
	return boundsOfSequence(sequence(points))
}

func boundsOfSequence(seq geom.Sequence) (Bounds, bool) {
	if seq.Length() == 0 {
		return Bounds{}, false
	}
	first := seq.GetXY(0)
	b := Bounds{MinLat: first.Y, MaxLat: first.Y, MinLon: first.X, MaxLon: first.X}
	for i := 1; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		b.MinLat = math.Min(b.MinLat, xy.Y)
		b.MaxLat = math.Max(b.MaxLat, xy.Y)
		b.MinLon = math.Min(b.MinLon, xy.X)
		b.MaxLon = math.Max(b.MaxLon, xy.X)
	}
	return b, true
}

func sequence(points []LatLon) geom.Sequence {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lon, p.Lat)
	}
	return geom.NewSequence(flat, geom.DimXY)
}

func hasDistinct(points []LatLon) bool {
	for _, p := range points[1:] {
		if p != points[0] {
			return true
		}
	}
	return false
}

// Distance повертає відстань по великому колу між двома точками в метрах
func Distance(a, b LatLon) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Length повертає довжину маршруту в метрах
func Length(points []LatLon) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// ToWebMercator проектує точки з EPSG:4326 в EPSG:3857; результат - пари [x, y] у метрах
func ToWebMercator(points []LatLon) [][2]float64 {
	transform := wgs84.EPSG().Transform(4326, 3857)
	out := make([][2]float64, len(points))
	for i, p := range points {
		x, y, _ := transform(p.Lon, p.Lat, 0)
		out[i] = [2]float64{x, y}
	}
	return out
}

// Feature будує GeoJSON Feature маршруту з довільними властивостями
func Feature(id string, points []LatLon, properties map[string]interface{}) (geom.GeoJSONFeature, error) {
	g, err := Geometry(points)
	if err != nil {
		return geom.GeoJSONFeature{}, err
	}
	return geom.GeoJSONFeature{
		ID:         id,
		Geometry:   g,
		Properties: properties,
	}, nil
}
