package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))
	assert.Equal(t, "New Zealand, Auckland", FormatContext([]string{"Auckland", "New Zealand"}))
}

func TestGeoPoint_RoundTripsThroughGeoJSON(t *testing.T) {
	p := GeoPoint{Latitude: -36.85, Longitude: 174.76}
	g := p.GeoJSON()
	assert.Equal(t, []float64{174.76, -36.85}, g.Coordinates)

	back, ok := PointFromGeoJSON(g)
	require.True(t, ok)
	assert.Equal(t, p, back)

	_, ok = PointFromGeoJSON(&GeoJSON{Type: "Point"})
	assert.False(t, ok)
}

func TestGeoPoint_Valid(t *testing.T) {
	assert.True(t, GeoPoint{Latitude: 10, Longitude: 20}.Valid())
	assert.False(t, GeoPoint{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, GeoPoint{Latitude: 0, Longitude: -181}.Valid())
}

func TestUserRef_DecodesStringOrObject(t *testing.T) {
	var l Listing
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"l1","owner":"u9"}`), &l))
	assert.Equal(t, "u9", l.Owner.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"_id":"l1","owner":{"_id":"u7","name":"Ana"}}`), &l))
	assert.Equal(t, "u7", l.Owner.ID)
	assert.Equal(t, "Ana", l.Owner.Name)
}

func TestListing_ActivePrice(t *testing.T) {
	price, rent := 500000.0, 1200.0
	sale := Listing{ListingType: ListingTypeSale, Price: &price, RentPrice: &rent}
	v, ok := sale.ActivePrice()
	assert.True(t, ok)
	assert.Equal(t, price, v)

	let := Listing{ListingType: ListingTypeRent, Price: &price}
	_, ok = let.ActivePrice()
	assert.False(t, ok)
}

func TestConversation_HasValidParticipants(t *testing.T) {
	c := Conversation{ID: "c1", Participants: []UserRef{{ID: "a"}, {ID: "b"}}}
	assert.True(t, c.HasValidParticipants())
	c.Participants[1].ID = "a"
	assert.False(t, c.HasValidParticipants())
	c.Participants = c.Participants[:1]
	assert.False(t, c.HasValidParticipants())
}

func TestLocation_Matches(t *testing.T) {
	l := Location{Name: "Auckland", AltNames: []string{"Tāmaki Makaurau"}}
	assert.True(t, l.Matches("auckland"))
	assert.True(t, l.Matches("TĀMAKI MAKAURAU"))
	assert.False(t, l.Matches("Auckland Central"))
}
