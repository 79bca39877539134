package services

import (
	"context"

	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

const msgAllowedRecyclableNotFound = "Recyclable is not whitelisted for this bin"

// Whitelist describes which recyclables a bin accepts. Recyclables is empty
// when the bin has no whitelist, meaning every recyclable is accepted.
type Whitelist struct {
	Enabled     bool               `json:"whitelist"`
	Recyclables []types.Recyclable `json:"recyclables"`
}

// BinService adds whitelist management to the generic bin use cases.
type BinService struct {
	*CRUDService[types.Bin]
	allowed     *store.Repository[types.AllowedRecyclable]
	recyclables *store.Repository[types.Recyclable]
}

func NewBinService(s *store.Store) *BinService {
	return &BinService{
		CRUDService: NewCRUDService[types.Bin](s, msgBinNotFound),
		allowed:     store.NewRepository[types.AllowedRecyclable](s),
		recyclables: store.NewRepository[types.Recyclable](s),
	}
}

// Whitelist returns the recyclables bin id accepts.
func (s *BinService) Whitelist(ctx context.Context, id int64) (Whitelist, error) {
	bin, err := s.Get(ctx, store.ByID(id))
	if err != nil {
		return Whitelist{}, err
	}
	if !bin.Whitelist {
		return Whitelist{Enabled: false, Recyclables: []types.Recyclable{}}, nil
	}
	recyclables, err := store.WhitelistedRecyclables(ctx, s.store.DB(), id)
	if err != nil {
		return Whitelist{}, translate(err, msgBinNotFound)
	}
	return Whitelist{Enabled: true, Recyclables: recyclables}, nil
}

// Allow adds a recyclable to the bin's whitelist. Adding one that is already
// listed fails with InvalidData.
func (s *BinService) Allow(ctx context.Context, actor int64, binID, recyclableID int64) (types.AllowedRecyclable, error) {
	var created types.AllowedRecyclable
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := s.repo.Get(ctx, tx, store.ByID(binID)); err != nil {
			return translate(err, msgBinNotFound)
		}
		if _, err := s.recyclables.Get(ctx, tx, store.ByID(recyclableID)); err != nil {
			return translate(err, msgRecyclableNotFound)
		}
		var err error
		created, err = s.allowed.Create(ctx, tx, &actor, types.AllowedRecyclable{BinID: binID, RecyclableID: recyclableID})
		return err
	})
	return created, translate(err, msgAllowedRecyclableNotFound)
}

// Disallow removes a recyclable from the bin's whitelist.
func (s *BinService) Disallow(ctx context.Context, actor int64, binID, recyclableID int64) (types.AllowedRecyclable, error) {
	var removed types.AllowedRecyclable
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		id, err := store.AllowedRecyclableID(ctx, tx, binID, recyclableID)
		if err != nil {
			return translate(err, msgAllowedRecyclableNotFound)
		}
		removed, err = s.allowed.Delete(ctx, tx, &actor, store.ByID(id))
		return err
	})
	return removed, translate(err, msgAllowedRecyclableNotFound)
}
