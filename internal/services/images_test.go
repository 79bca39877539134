package services_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binpoints/apiserver/internal/services"
	"github.com/binpoints/apiserver/internal/storage"
	"github.com/binpoints/apiserver/types"
)

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImagesAreStoredAsJPEG(t *testing.T) {
	ctx := context.Background()
	images := services.NewImageService(storage.NewStorage(storage.NewMemoryStorage()))

	require.NoError(t, images.Put(ctx, types.KindBin, 3, bytes.NewReader(pngImage(t))))

	rc, err := images.Open(ctx, types.KindBin, 3)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	_, err = jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	require.NoError(t, images.Put(ctx, types.KindBin, 3, bytes.NewReader(pngImage(t))))
}

func TestSubmissionImageIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	images := services.NewImageService(storage.NewStorage(storage.NewMemoryStorage()))

	require.NoError(t, images.Put(ctx, types.KindSubmission, 8, bytes.NewReader(pngImage(t))))
	err := images.Put(ctx, types.KindSubmission, 8, bytes.NewReader(pngImage(t)))
	require.Equal(t, "Submission image already exists", requireKind(t, err, services.KindInvalidData).Message)
}

func TestConcurrentSubmissionUploadsStoreOneImage(t *testing.T) {
	ctx := context.Background()
	images := services.NewImageService(storage.NewStorage(storage.NewMemoryStorage()))
	data := pngImage(t)

	const uploads = 8
	errs := make([]error, uploads)
	var wg sync.WaitGroup
	for i := range uploads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = images.Put(ctx, types.KindSubmission, 5, bytes.NewReader(data))
		}()
	}
	wg.Wait()

	var stored int
	for _, err := range errs {
		if err == nil {
			stored++
			continue
		}
		require.Equal(t, "Submission image already exists", requireKind(t, err, services.KindInvalidData).Message)
	}
	require.Equal(t, 1, stored)
}

// rotatedJPEG encodes a 4x2 image and tags it with EXIF orientation 6
// (stored sideways, display rotated 90 degrees clockwise).
func rotatedJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 2)), nil))
	raw := buf.Bytes()

	tiff := []byte{
		'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08, // big endian header, IFD at 8
		0x00, 0x01, // one entry
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x06, 0x00, 0x00, // orientation = 6
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	size := len(payload) + 2
	app1 := append([]byte{0xff, 0xe1, byte(size >> 8), byte(size)}, payload...)

	out := append([]byte{}, raw[:2]...)
	out = append(out, app1...)
	return append(out, raw[2:]...)
}

func TestImagesFollowExifOrientation(t *testing.T) {
	ctx := context.Background()
	images := services.NewImageService(storage.NewStorage(storage.NewMemoryStorage()))

	require.NoError(t, images.Put(ctx, types.KindReward, 4, bytes.NewReader(rotatedJPEG(t))))

	rc, err := images.Open(ctx, types.KindReward, 4)
	require.NoError(t, err)
	defer rc.Close()
	img, err := jpeg.Decode(rc)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 2, 4), img.Bounds())
}

func TestImageErrors(t *testing.T) {
	ctx := context.Background()
	images := services.NewImageService(storage.NewStorage(storage.NewMemoryStorage()))

	err := images.Put(ctx, types.KindReward, 1, strings.NewReader("not an image"))
	require.Equal(t, "Image could not be processed", requireKind(t, err, services.KindServerError).Message)

	_, err = images.Open(ctx, types.KindReward, 1)
	requireKind(t, err, services.KindNotFound)

	_, err = services.ImageKey(types.KindUser, 1)
	requireKind(t, err, services.KindInvalidData)

	key, err := services.ImageKey(types.KindSubmission, 12)
	require.NoError(t, err)
	require.Equal(t, "submissions/12.jpg", key)
}
