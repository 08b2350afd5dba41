package models

import (
	"bytes"
	"encoding/json"
)

// UserRef references a user. The marketplace API sends either a bare id
// string or a populated object; both decode into UserRef.
type UserRef struct {
	ID     string `bson:"_id" json:"_id"`
	Name   string `bson:"name,omitempty" json:"name,omitempty"`
	Avatar string `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type plain UserRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = UserRef(p)
	return nil
}

// Address is a physical address attached to a listing or profile.
type Address struct {
	Street     string `bson:"street,omitempty" json:"street,omitempty" yaml:"street,omitempty"`
	City       string `bson:"city,omitempty" json:"city,omitempty" yaml:"city,omitempty"`
	State      string `bson:"state,omitempty" json:"state,omitempty" yaml:"state,omitempty"`
	Country    string `bson:"country,omitempty" json:"country,omitempty" yaml:"country,omitempty"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty" yaml:"postalCode,omitempty"`
}

// ContactDetails holds how a lister wants to be reached.
type ContactDetails struct {
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty" yaml:"phone,omitempty"`
	Email    string `bson:"email,omitempty" json:"email,omitempty" yaml:"email,omitempty"`
	WhatsApp string `bson:"whatsapp,omitempty" json:"whatsapp,omitempty" yaml:"whatsapp,omitempty"`
}

// Profile is the signed-in user's own profile as last returned by upstream.
type Profile struct {
	ID      string          `bson:"_id" json:"_id"`
	Name    string          `bson:"name,omitempty" json:"name,omitempty"`
	Email   string          `bson:"email,omitempty" json:"email,omitempty"`
	Phone   string          `bson:"phone,omitempty" json:"phone,omitempty"`
	Bio     string          `bson:"bio,omitempty" json:"bio,omitempty"`
	Avatar  string          `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Address *Address        `bson:"address,omitempty" json:"address,omitempty"`
	Contact *ContactDetails `bson:"contact,omitempty" json:"contact,omitempty"`
}
