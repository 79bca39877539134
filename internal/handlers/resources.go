package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/binpoints/apiserver/internal/services"
	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

// patch is a typed partial update for T, such as types.BinPatch.
type patch[T any] interface {
	Apply(*T) error
}

// resourceHandler serves the create/get/list/update/delete routes shared by
// every resource. Access checks are attached by the router.
type resourceHandler[T services.Resource, P patch[T]] struct {
	crud *services.CRUDService[T]

	// param names the URL parameter and key turns it into a lookup.
	// Staff and motivations are addressed by user_id.
	param string
	key   func(int64) store.Key

	// required lists fields a create payload must carry.
	required func(P) error

	// update and delete replace the plain CRUD calls when a service adds
	// rules of its own.
	update func(ctx context.Context, actor, id int64, p P) (T, error)
	delete func(ctx context.Context, actor, id int64) (T, error)
}

func newResourceHandler[T services.Resource, P patch[T]](crud *services.CRUDService[T]) *resourceHandler[T, P] {
	return &resourceHandler[T, P]{crud: crud, param: "id", key: store.ByID}
}

func (h *resourceHandler[T, P]) table() string {
	var zero T
	return zero.Kind().String()
}

func (h *resourceHandler[T, P]) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.crud.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]T{h.table(): records})
}

func (h *resourceHandler[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.param)
	if !ok {
		return
	}
	record, err := h.crud.Get(r.Context(), h.key(id))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Create builds a record from a patch applied to the zero value, so create
// and update accept the same fields.
func (h *resourceHandler[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}
	h.create(w, r, p)
}

func (h *resourceHandler[T, P]) decodeCreate(w http.ResponseWriter, r *http.Request) (P, bool) {
	var p P
	if !decodeJSON(w, r, &p) {
		return p, false
	}
	if h.required != nil {
		if err := h.required(p); err != nil {
			writeInvalid(w, err)
			return p, false
		}
	}
	return p, true
}

func (h *resourceHandler[T, P]) create(w http.ResponseWriter, r *http.Request, p P) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var record T
	if err := p.Apply(&record); err != nil {
		writeInvalid(w, err)
		return
	}
	created, err := h.crud.Create(r.Context(), &actor, record)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ResourceResponse{Message: msgResourceCreated, Resource: created})
}

func (h *resourceHandler[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.param)
	if !ok {
		return
	}
	var p P
	if !decodeJSON(w, r, &p) {
		return
	}

	var (
		updated T
		err     error
	)
	if h.update != nil {
		updated, err = h.update(r.Context(), actor, id, p)
	} else {
		updated, err = h.crud.Update(r.Context(), &actor, h.key(id), p.Apply)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResourceResponse{
		Message:  fmt.Sprintf("%s record updated", h.table()),
		Resource: updated,
	})
}

func (h *resourceHandler[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.param)
	if !ok {
		return
	}

	var err error
	if h.delete != nil {
		_, err = h.delete(r.Context(), actor, id)
	} else {
		_, err = h.crud.Delete(r.Context(), &actor, h.key(id))
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgResourceDeleted})
}

func writeInvalid(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidData, Message: err.Error()})
}

type field struct {
	name string
	set  bool
}

func present[V any](name string, v *V) field {
	return field{name: name, set: v != nil}
}

// requireFields fails on the first field that was not sent.
func requireFields(fields ...field) error {
	for _, f := range fields {
		if !f.set {
			return fmt.Errorf("%w: %s is required", types.ErrInvalidValue, f.name)
		}
	}
	return nil
}
