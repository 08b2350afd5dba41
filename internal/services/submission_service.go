package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/storage"
	"estatehub/gateway/internal/transcode"
)

// Submitter is the upstream API for multipart writes.
type Submitter interface {
	CreateListing(ctx context.Context, contentType string, body io.Reader) (*models.Listing, error)
	UpdateListing(ctx context.Context, id, contentType string, body io.Reader) (*models.Listing, error)
	UpdateProfile(ctx context.Context, contentType string, body io.Reader) (*models.Profile, error)
}

// ISubmissionService turns structured forms into upstream multipart writes.
type ISubmissionService interface {
	// SubmitListing creates a listing when listingID is empty, otherwise updates it.
	SubmitListing(ctx context.Context, userID, listingID string, form models.ListingForm) (*models.Listing, error)
	UpdateProfile(ctx context.Context, userID string, form models.ProfileForm) (*models.Profile, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

type submissionService struct {
	upstream  Submitter
	media     transcode.MediaOpener
	snapshots ISnapshotService
	logger    *zap.Logger
}

func NewSubmissionService(upstream Submitter, media transcode.MediaOpener, snapshots ISnapshotService, logger *zap.Logger) ISubmissionService {
	return &submissionService{upstream: upstream, media: media, snapshots: snapshots, logger: logger}
}

// checkOwnership rejects photo keys outside the user's upload prefix.
func checkOwnership(userID string, field string, refs ...models.PhotoRef) error {
	prefix := storage.UserPrefix(userID)
	for i, ref := range refs {
		if !strings.HasPrefix(ref.Key, prefix) {
			name := field
			if field == transcode.PhotosField {
				name = fmt.Sprintf("%s[%d]", field, i)
			}
			return &transcode.ValidationError{Field: name, Message: "photo was not uploaded by this user"}
		}
	}
	return nil
}

// send streams the encoded payload into call. Encoding runs concurrently so
// photos are copied from storage straight into the request body.
func (s *submissionService) send(ctx context.Context, p *transcode.Payload, call func(ctx context.Context, contentType string, body io.Reader) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := p.Encode(ctx, pw, s.media)
		_ = pw.CloseWithError(err)
		done <- err
	}()

	callErr := call(ctx, p.ContentType(), pr)
	// Unblock the encoder if upstream stopped reading early.
	_ = pr.Close()
	encErr := <-done

	if encErr != nil && !errors.Is(encErr, io.ErrClosedPipe) {
		if errors.Is(encErr, storage.ErrObjectNotFound) {
			return &transcode.ValidationError{Field: transcode.PhotosField, Message: "uploaded photo not found"}
		}
		return fmt.Errorf("failed to encode submission: %w", encErr)
	}
	return callErr
}

func (s *submissionService) SubmitListing(ctx context.Context, userID, listingID string, form models.ListingForm) (*models.Listing, error) {
	p, err := transcode.Listing(form)
	if err != nil {
		return nil, err
	}
	if err := checkOwnership(userID, transcode.PhotosField, form.Photos...); err != nil {
		return nil, err
	}

	var listing *models.Listing
	err = s.send(ctx, p, func(ctx context.Context, contentType string, body io.Reader) error {
		var err error
		if listingID == "" {
			listing, err = s.upstream.CreateListing(ctx, contentType, body)
		} else {
			listing, err = s.upstream.UpdateListing(ctx, listingID, contentType, body)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing submitted",
		zap.String("user_id", userID), zap.String("listing_id", listing.ID),
		zap.Bool("created", listingID == ""), zap.Int("photos", len(form.Photos)))
	return listing, nil
}

func (s *submissionService) UpdateProfile(ctx context.Context, userID string, form models.ProfileForm) (*models.Profile, error) {
	p, err := transcode.Profile(form)
	if err != nil {
		return nil, err
	}
	if form.Avatar != nil {
		if err := checkOwnership(userID, transcode.AvatarField, *form.Avatar); err != nil {
			return nil, err
		}
	}

	var profile *models.Profile
	err = s.send(ctx, p, func(ctx context.Context, contentType string, body io.Reader) error {
		var err error
		profile, err = s.upstream.UpdateProfile(ctx, contentType, body)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.snapshots.SaveProfile(ctx, userID, profile); err != nil {
		// Upstream has the change; the snapshot catches up on the next update.
		s.logger.Warn("failed to store updated profile", zap.String("user_id", userID), zap.Error(err))
	}
	return profile, nil
}

func (s *submissionService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	snap, err := s.snapshots.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.Profile == nil {
		return nil, ErrNotFound
	}
	return snap.Profile, nil
}
