// Package transcode turns listing and profile forms into multipart payloads
// for the marketplace upload endpoints.
package transcode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path"
	"strconv"
	"strings"

	"estatehub/gateway/internal/models"
)

const (
	// PhotosField is the shared field name every listing photo is appended under.
	PhotosField = "photos"
	// AvatarField carries the profile picture.
	AvatarField = "avatar"

	defaultPhotoType = "image/jpeg"
)

// ValidationError reports a form that must not be sent upstream.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Field is a plain multipart form value.
type Field struct {
	Name  string
	Value string
}

// File is a multipart file part whose bytes live in media storage under Key.
type File struct {
	Field       string
	FileName    string
	ContentType string
	Key         string
}

// Payload is an ordered multipart body description. Building one has no side
// effects; bytes are only read from media storage by Encode.
type Payload struct {
	Fields []Field
	Files  []File
}

// MediaOpener reads uploaded media by storage key.
type MediaOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

func (p *Payload) add(name, value string) {
	if value == "" {
		return
	}
	p.Fields = append(p.Fields, Field{Name: name, Value: value})
}

func (p *Payload) addFloat(name string, v *float64) {
	if v != nil {
		p.add(name, strconv.FormatFloat(*v, 'f', -1, 64))
	}
}

func (p *Payload) addInt(name string, v *int) {
	if v != nil {
		p.add(name, strconv.Itoa(*v))
	}
}

func (p *Payload) addBool(name string, v *bool) {
	if v != nil {
		p.add(name, strconv.FormatBool(*v))
	}
}

func (p *Payload) addContact(c *models.ContactDetails) {
	if c == nil {
		return
	}
	p.add("contact[phone]", c.Phone)
	p.add("contact[email]", c.Email)
	p.add("contact[whatsapp]", c.WhatsApp)
}

func (p *Payload) addAddress(a *models.Address) {
	if a == nil {
		return
	}
	p.add("address[street]", a.Street)
	p.add("address[city]", a.City)
	p.add("address[state]", a.State)
	p.add("address[country]", a.Country)
	p.add("address[postalCode]", a.PostalCode)
}

func (p *Payload) addPhoto(field string, n int, ref models.PhotoRef) {
	name := ref.Name
	if name == "" {
		name = path.Base(ref.Key)
		if name == "." || name == "/" || path.Ext(name) == "" {
			name = fmt.Sprintf("photo_%d.jpg", n)
		}
	}
	contentType := ref.Type
	if contentType == "" || !strings.Contains(contentType, "/") {
		contentType = InferContentType(name)
	}
	p.Files = append(p.Files, File{Field: field, FileName: name, ContentType: contentType, Key: ref.Key})
}

// InferContentType maps a file name to its MIME type, defaulting to JPEG.
func InferContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	case ".webp":
		return "image/webp"
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return defaultPhotoType
}

// Listing builds the create/update listing payload.
func Listing(form models.ListingForm) (*Payload, error) {
	if strings.TrimSpace(form.Title) == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}
	if !form.ListingType.Valid() {
		return nil, &ValidationError{Field: "listingType", Message: "must be sale or rent"}
	}

	p := &Payload{}
	p.add("title", strings.TrimSpace(form.Title))
	p.add("description", form.Description)
	p.add("listingType", string(form.ListingType))

	switch form.ListingType {
	case models.ListingTypeSale:
		if form.Price == nil || *form.Price < 0 {
			return nil, &ValidationError{Field: "price", Message: "is required for sale listings"}
		}
		p.addFloat("price", form.Price)
	case models.ListingTypeRent:
		if form.RentPrice == nil || *form.RentPrice < 0 {
			return nil, &ValidationError{Field: "rentPrice", Message: "is required for rent listings"}
		}
		p.addFloat("rentPrice", form.RentPrice)
	}

	p.add("category", form.Category)
	p.addInt("bedrooms", form.Bedrooms)
	p.addInt("bathrooms", form.Bathrooms)
	p.addBool("furnished", form.Furnished)
	p.addContact(form.Contact)
	p.addAddress(form.Address)
	if form.Location != nil {
		if !form.Location.Valid() {
			return nil, &ValidationError{Field: "location", Message: "is out of range"}
		}
		p.add("location[latitude]", strconv.FormatFloat(form.Location.Latitude, 'f', -1, 64))
		p.add("location[longitude]", strconv.FormatFloat(form.Location.Longitude, 'f', -1, 64))
	}

	for i, ref := range form.Photos {
		if ref.Key == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("photos[%d]", i), Message: "has no media key"}
		}
		p.addPhoto(PhotosField, i+1, ref)
	}
	return p, nil
}

// Profile builds the profile update payload.
func Profile(form models.ProfileForm) (*Payload, error) {
	p := &Payload{}
	p.add("name", strings.TrimSpace(form.Name))
	p.add("phone", form.Phone)
	p.add("bio", form.Bio)
	p.addContact(form.Contact)
	p.addAddress(form.Address)
	if form.Avatar != nil {
		if form.Avatar.Key == "" {
			return nil, &ValidationError{Field: "avatar", Message: "has no media key"}
		}
		p.addPhoto(AvatarField, 1, *form.Avatar)
	}
	if len(p.Fields) == 0 && len(p.Files) == 0 {
		return nil, &ValidationError{Field: "profile", Message: "no fields to update"}
	}
	return p, nil
}

// Boundary derives the multipart boundary from the payload description, so
// identical payloads encode identically.
func (p *Payload) Boundary() string {
	h := sha256.New()
	for _, f := range p.Fields {
		fmt.Fprintf(h, "%s=%s\n", f.Name, f.Value)
	}
	for _, f := range p.Files {
		fmt.Fprintf(h, "%s|%s|%s|%s\n", f.Field, f.FileName, f.ContentType, f.Key)
	}
	return "estatehub-" + hex.EncodeToString(h.Sum(nil))[:32]
}

// ContentType is the multipart content type Encode will produce.
func (p *Payload) ContentType() string {
	return "multipart/form-data; boundary=" + p.Boundary()
}

// Encode writes the payload as multipart/form-data to w and returns the
// request Content-Type. Files are streamed from opener in order.
func (p *Payload) Encode(ctx context.Context, w io.Writer, opener MediaOpener) (string, error) {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(p.Boundary()); err != nil {
		return "", fmt.Errorf("failed to set multipart boundary: %w", err)
	}

	for _, f := range p.Fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}

	for _, f := range p.Files {
		if opener == nil {
			return "", fmt.Errorf("no media opener for file %s", f.Key)
		}
		if err := writeFile(ctx, mw, f, opener); err != nil {
			return "", err
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return mw.FormDataContentType(), nil
}

func writeFile(ctx context.Context, mw *multipart.Writer, f File, opener MediaOpener) error {
	src, err := opener.Open(ctx, f.Key)
	if err != nil {
		return fmt.Errorf("failed to open media %s: %w", f.Key, err)
	}
	defer src.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.Field), escapeQuotes(f.FileName)))
	h.Set("Content-Type", f.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part for %s: %w", f.Key, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to copy media %s: %w", f.Key, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
