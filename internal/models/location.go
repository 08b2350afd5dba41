package models

import (
	"strings"
)

// GeoJSON represents a GeoJSON Point.
type GeoJSON struct {
	Type        string    `bson:"type" json:"type"`               // Should be "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

// GeoPoint is a device position as reported by the geolocation provider.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// GeoJSON converts the point into a GeoJSON Point.
func (p GeoPoint) GeoJSON() *GeoJSON {
	return &GeoJSON{Type: "Point", Coordinates: []float64{p.Longitude, p.Latitude}}
}

// PointFromGeoJSON converts a GeoJSON Point back to a GeoPoint.
func PointFromGeoJSON(g *GeoJSON) (GeoPoint, bool) {
	if g == nil || len(g.Coordinates) != 2 {
		return GeoPoint{}, false
	}
	return GeoPoint{Latitude: g.Coordinates[1], Longitude: g.Coordinates[0]}, true
}

// Location represents a toponym document from the pre-populated collection.
type Location struct {
	ID          int      `bson:"_id,omitempty" json:"id,omitempty"`
	ParentID    int      `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Context     []string `bson:"context,omitempty" json:"context,omitempty"` // Array of ancestor names
	Location    *GeoJSON `bson:"location,omitempty" json:"location,omitempty"`
	Name        string   `bson:"name" json:"name"`
	CountryCode string   `bson:"country_code" json:"country_code"`
	AltNames    []string `bson:"alt_names,omitempty" json:"alt_names,omitempty"`
	Population  int      `bson:"population,omitempty" json:"population,omitempty"`
	Score       float64  `bson:"score,omitempty" json:"-"` // text search relevance
}

// Matches reports whether name is this location's name or one of its
// alternate names, ignoring case.
func (l *Location) Matches(name string) bool {
	if strings.EqualFold(l.Name, name) {
		return true
	}
	for _, alt := range l.AltNames {
		if strings.EqualFold(alt, name) {
			return true
		}
	}
	return false
}

// LocationAPIResponse defines the structure for location data returned by APIs.
type LocationAPIResponse struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Context     string    `json:"context,omitempty"`
	CountryCode string    `json:"country_code"`
	Coordinates []float64 `json:"coordinates,omitempty"` // [longitude, latitude]
}

// FormatContext takes a slice of context strings (ancestors of a location)
// and returns a single string with elements reversed and joined by ", ".
func FormatContext(contextElements []string) string {
	if len(contextElements) == 0 {
		return ""
	}
	reversed := make([]string, len(contextElements))
	for i, j := 0, len(contextElements)-1; j >= 0; i, j = i+1, j-1 {
		reversed[i] = contextElements[j]
	}
	return strings.Join(reversed, ", ")
}

// ToAPIResponse flattens a Location for the REST API.
func (l *Location) ToAPIResponse() LocationAPIResponse {
	resp := LocationAPIResponse{
		ID:          l.ID,
		Name:        l.Name,
		Context:     FormatContext(l.Context),
		CountryCode: l.CountryCode,
	}
	if l.Location != nil {
		resp.Coordinates = l.Location.Coordinates
	}
	return resp
}
