package services

import (
	"context"
)

// Service defines the interface for remote photo stores that can receive
// uploads and group them into named sets.
type Service interface {
	// Authenticate verifies the configured credentials against the service.
	// Returns an error if the credentials are missing or rejected.
	Authenticate(ctx context.Context) error

	// Upload sends one local file and returns the remotely assigned photo ID.
	Upload(ctx context.Context, req UploadRequest) (string, error)

	// ListSets retrieves all photosets owned by the authenticated user.
	ListSets(ctx context.Context) ([]Photoset, error)

	// CreateSet creates a new photoset with the given primary photo.
	CreateSet(ctx context.Context, title, primaryPhotoID string) (*Photoset, error)

	// ListSetPhotos retrieves the full membership of a photoset.
	ListSetPhotos(ctx context.Context, setID string) ([]Photo, error)

	// AddToSet adds an uploaded photo to a photoset. Adding a photo that is
	// already a member is not an error.
	AddToSet(ctx context.Context, setID, photoID string) error

	// Name returns the name of the service (e.g. "Flickr")
	Name() string
}

// UploadRequest describes one file to upload.
type UploadRequest struct {
	Path   string // local file path
	Title  string // remote display title
	Tags   string // space-delimited tags, may be empty
	Public bool   // uploads are private unless set
}

// Photoset represents a remote named grouping of photos.
type Photoset struct {
	ID          string
	Title       string
	Description string
}

// Photo represents one uploaded photo as known remotely.
type Photo struct {
	ID    string
	Title string
}
