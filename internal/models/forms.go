package models

// PhotoRef points at an uploaded photo in media storage.
type PhotoRef struct {
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// ListingForm is the create/edit listing form as submitted by the app.
type ListingForm struct {
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	ListingType ListingType     `json:"listingType" yaml:"listingType"`
	Price       *float64        `json:"price,omitempty" yaml:"price,omitempty"`
	RentPrice   *float64        `json:"rentPrice,omitempty" yaml:"rentPrice,omitempty"`
	Category    string          `json:"category,omitempty" yaml:"category,omitempty"`
	Bedrooms    *int            `json:"bedrooms,omitempty" yaml:"bedrooms,omitempty"`
	Bathrooms   *int            `json:"bathrooms,omitempty" yaml:"bathrooms,omitempty"`
	Furnished   *bool           `json:"furnished,omitempty" yaml:"furnished,omitempty"`
	Contact     *ContactDetails `json:"contact,omitempty" yaml:"contact,omitempty"`
	Address     *Address        `json:"address,omitempty" yaml:"address,omitempty"`
	Location    *GeoPoint       `json:"location,omitempty" yaml:"location,omitempty"`
	Photos      []PhotoRef      `json:"photos,omitempty" yaml:"photos,omitempty"`
}

// ProfileForm is the edit-profile form.
type ProfileForm struct {
	Name    string          `json:"name,omitempty" yaml:"name,omitempty"`
	Phone   string          `json:"phone,omitempty" yaml:"phone,omitempty"`
	Bio     string          `json:"bio,omitempty" yaml:"bio,omitempty"`
	Contact *ContactDetails `json:"contact,omitempty" yaml:"contact,omitempty"`
	Address *Address        `json:"address,omitempty" yaml:"address,omitempty"`
	Avatar  *PhotoRef       `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}
