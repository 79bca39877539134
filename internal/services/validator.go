package services

import (
	"context"

	"github.com/binpoints/apiserver/internal/geo"
	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

const (
	msgBinNotFound        = "Bin not found"
	msgRecyclableNotFound = "Recyclable not found"
	msgNotWhitelisted     = "Recyclable not allowed for this bin"
	msgTooFarFromBin      = "Not within sufficient distance of specified bin"
)

// SubmissionValidator checks a new submission against its bin before it is
// stored. Checks run in order and stop at the first failure.
type SubmissionValidator struct {
	bins        *store.Repository[types.Bin]
	recyclables *store.Repository[types.Recyclable]
	maxDistance float64
}

func NewSubmissionValidator(s *store.Store, maxDistanceMeters float64) *SubmissionValidator {
	return &SubmissionValidator{
		bins:        store.NewRepository[types.Bin](s),
		recyclables: store.NewRepository[types.Recyclable](s),
		maxDistance: maxDistanceMeters,
	}
}

// Validate resolves the bin, enforces its whitelist and the distance limit,
// then makes sure the recyclable exists.
func (v *SubmissionValidator) Validate(ctx context.Context, q store.Querier, sub types.Submission) error {
	bin, err := v.bins.Get(ctx, q, store.ByID(sub.BinID))
	if err != nil {
		return translate(err, msgBinNotFound)
	}

	if bin.Whitelist {
		allowed, err := store.IsWhitelisted(ctx, q, bin.ID, sub.RecyclableID)
		if err != nil {
			return translate(err, msgBinNotFound)
		}
		if !allowed {
			return Forbidden(msgNotWhitelisted)
		}
	}

	reported := geo.Point{Lat: sub.Latitude, Lon: sub.Longitude}
	if !geo.Within(reported, geo.Point{Lat: bin.Latitude, Lon: bin.Longitude}, v.maxDistance) {
		return Forbidden(msgTooFarFromBin)
	}

	exists, err := v.recyclables.Exists(ctx, q, store.ByID(sub.RecyclableID))
	if err != nil {
		return translate(err, msgRecyclableNotFound)
	}
	if !exists {
		return NotFound(msgRecyclableNotFound)
	}
	return nil
}
