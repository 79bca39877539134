package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/binpoints/apiserver/internal/services"
	"github.com/binpoints/apiserver/types"
)

const (
	formFieldImage     = "image"
	maxMultipartMemory = 32 << 20
	multipartOverhead  = 1 << 20
	msgMissingImage    = "No image uploaded"
	msgImageTooLarge   = "Image is too large"
	msgImageUploaded   = "Image uploaded, verification pending."
)

// imageHandler moves images between multipart requests and the image service.
type imageHandler struct {
	images   *services.ImageService
	maxBytes int64
}

// upload stores the "image" form file for the resource. The caller has
// already checked access and that the resource exists.
func (h imageHandler) upload(w http.ResponseWriter, r *http.Request, kind types.ResourceKind, id int64) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgMissingImage)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgMissingImage)
		return
	}
	defer file.Close()
	if header.Size > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
		return
	}

	if err := h.images.Put(r.Context(), kind, id, file); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgImageUploaded})
}

// remove drops the image of a deleted resource. Failures leave an orphaned
// object behind and are only logged.
func (h imageHandler) remove(ctx context.Context, kind types.ResourceKind, id int64) {
	if err := h.images.Remove(ctx, kind, id); err != nil {
		slog.WarnContext(ctx, "failed to remove image", "kind", kind.String(), "id", id, "error", err)
	}
}

func (h imageHandler) download(w http.ResponseWriter, r *http.Request, kind types.ResourceKind, id int64) {
	rc, err := h.images.Open(r.Context(), kind, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", h.images.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", "inline; filename=\""+strconv.FormatInt(id, 10)+".jpg\"")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "image download interrupted", "kind", kind.String(), "id", id, "error", err)
	}
}
