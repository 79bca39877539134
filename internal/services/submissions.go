package services

import (
	"context"

	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

const (
	msgSubmissionNotFound = "Submission not found"
	msgFrozenSubmission   = "Your account is frozen and you cannot make new submissions"
)

// NewSubmission is what a user reports when handing in a recyclable.
// Status is not part of it: every submission starts unconfirmed.
type NewSubmission struct {
	RecyclableID int64   `json:"recyclable_id"`
	UserID       int64   `json:"user_id"`
	BinID        int64   `json:"bin_id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// SubmissionService encapsulates submission use cases.
type SubmissionService struct {
	*CRUDService[types.Submission]
	users     *UserService
	validator *SubmissionValidator
}

func NewSubmissionService(s *store.Store, users *UserService, validator *SubmissionValidator) *SubmissionService {
	return &SubmissionService{
		CRUDService: NewCRUDService[types.Submission](s, msgSubmissionNotFound),
		users:       users,
		validator:   validator,
	}
}

// Create records a submission after the frozen-account check and the
// validator pass. Neither the acting nor the credited account may be frozen.
func (s *SubmissionService) Create(ctx context.Context, actor int64, req NewSubmission) (types.Submission, error) {
	for _, id := range uniqueIDs(actor, req.UserID) {
		frozen, err := s.users.IsFrozen(ctx, id)
		if err != nil {
			return types.Submission{}, err
		}
		if frozen {
			return types.Submission{}, Forbidden(msgFrozenSubmission)
		}
	}

	sub := types.Submission{
		RecyclableID: req.RecyclableID,
		UserID:       req.UserID,
		BinID:        req.BinID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Status:       types.StatusNotConfirmed,
	}
	if err := sub.Validate(); err != nil {
		return types.Submission{}, translate(err, msgSubmissionNotFound)
	}
	if err := s.validator.Validate(ctx, s.store.DB(), sub); err != nil {
		return types.Submission{}, err
	}
	return s.CRUDService.Create(ctx, &actor, sub)
}

// Update applies a moderator's patch. Status may only leave not_confirmed.
func (s *SubmissionService) Update(ctx context.Context, actor int64, id int64, patch types.SubmissionPatch) (types.Submission, error) {
	return s.CRUDService.Update(ctx, &actor, store.ByID(id), patch.Apply)
}

func (s *SubmissionService) Delete(ctx context.Context, actor int64, id int64) (types.Submission, error) {
	return s.CRUDService.Delete(ctx, &actor, store.ByID(id))
}

func uniqueIDs(a, b int64) []int64 {
	if a == b {
		return []int64{a}
	}
	return []int64{a, b}
}
