package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"

	"github.com/binpoints/apiserver/internal/storage"
	"github.com/binpoints/apiserver/types"
)

const (
	imageContentType    = "image/jpeg"
	jpegQuality         = 90
	msgImageProcessing  = "Image could not be processed"
	msgImageExists      = "Submission image already exists"
	msgImageUnsupported = "Images are not supported for this resource"
)

// ImageService stores resource images. Uploads are decoded, turned upright
// according to their EXIF orientation and re-encoded as JPEG, which also
// drops any embedded metadata.
type ImageService struct {
	storage *storage.Storage
}

func NewImageService(s *storage.Storage) *ImageService {
	return &ImageService{storage: s}
}

// ImageKey is the object key of a resource's image, e.g. "bins/3.jpg".
func ImageKey(kind types.ResourceKind, id int64) (string, error) {
	switch kind {
	case types.KindBin, types.KindReward, types.KindSubmission:
		return fmt.Sprintf("%s/%d.jpg", kind, id), nil
	default:
		return "", InvalidData(msgImageUnsupported)
	}
}

// Put replaces the image of a bin or reward. Submission images are written
// once; a second upload fails with InvalidData.
func (s *ImageService) Put(ctx context.Context, kind types.ResourceKind, id int64, r io.Reader) error {
	key, err := ImageKey(kind, id)
	if err != nil {
		return err
	}

	// Fails fast before decoding; Create below settles concurrent uploads.
	if kind == types.KindSubmission {
		exists, err := s.storage.Exists(ctx, key)
		if err != nil {
			return ServerError(err)
		}
		if exists {
			return InvalidData(msgImageExists)
		}
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return &Error{Kind: KindServerError, Message: msgImageProcessing, Err: err}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return &Error{Kind: KindServerError, Message: msgImageProcessing, Err: err}
	}

	if kind == types.KindSubmission {
		err = s.storage.Create(ctx, key, &buf, int64(buf.Len()), imageContentType)
		if errors.Is(err, storage.ErrObjectExists) {
			return InvalidData(msgImageExists)
		}
	} else {
		err = s.storage.Put(ctx, key, &buf, int64(buf.Len()), imageContentType)
	}
	if err != nil {
		return ServerError(err)
	}
	return nil
}

// Open returns the stored JPEG. The caller closes the reader.
func (s *ImageService) Open(ctx context.Context, kind types.ResourceKind, id int64) (io.ReadCloser, error) {
	key, err := ImageKey(kind, id)
	if err != nil {
		return nil, err
	}
	rc, err := s.storage.Get(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, NotFound(msgNotFound)
	}
	if err != nil {
		return nil, ServerError(err)
	}
	return rc, nil
}

// Remove deletes the image of a resource, if it has one.
func (s *ImageService) Remove(ctx context.Context, kind types.ResourceKind, id int64) error {
	key, err := ImageKey(kind, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return ServerError(err)
	}
	return nil
}

// ContentType is the media type of every stored image.
func (s *ImageService) ContentType() string {
	return imageContentType
}
