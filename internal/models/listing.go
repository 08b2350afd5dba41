package models

import (
	"time"
)

// ListingType discriminates which price field of a Listing is active.
type ListingType string

const (
	ListingTypeSale ListingType = "sale"
	ListingTypeRent ListingType = "rent"
)

// Valid reports whether t is a known listing type.
func (t ListingType) Valid() bool {
	return t == ListingTypeSale || t == ListingTypeRent
}

// Listing is a property listing as served by the marketplace API.
// Exactly one of Price/RentPrice is meaningful, selected by ListingType.
type Listing struct {
	ID          string      `bson:"_id" json:"_id"`
	Title       string      `bson:"title" json:"title"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	ListingType ListingType `bson:"listingType" json:"listingType"`
	Price       *float64    `bson:"price,omitempty" json:"price,omitempty"`
	RentPrice   *float64    `bson:"rentPrice,omitempty" json:"rentPrice,omitempty"`
	Photos      []string    `bson:"photos,omitempty" json:"photos,omitempty"`
	Owner       *UserRef    `bson:"owner,omitempty" json:"owner,omitempty"`
	Location    *GeoJSON    `bson:"location,omitempty" json:"location,omitempty"`
	Category    string      `bson:"category,omitempty" json:"category,omitempty"`
	Bedrooms    *int        `bson:"bedrooms,omitempty" json:"bedrooms,omitempty"`
	Bathrooms   *int        `bson:"bathrooms,omitempty" json:"bathrooms,omitempty"`
	Furnished   *bool       `bson:"furnished,omitempty" json:"furnished,omitempty"`
	Views       int         `bson:"views" json:"views"`
	Likes       int         `bson:"likes" json:"likes"`
	CreatedAt   *time.Time  `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt   *time.Time  `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// ActivePrice returns the price that applies to the listing's type.
func (l *Listing) ActivePrice() (float64, bool) {
	var p *float64
	switch l.ListingType {
	case ListingTypeSale:
		p = l.Price
	case ListingTypeRent:
		p = l.RentPrice
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// ListingPage is one page of the upstream listings endpoints.
type ListingPage struct {
	Items   []Listing `json:"items"`
	HasMore bool      `json:"hasMore"`
}
