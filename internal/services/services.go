package services

import (
	"github.com/binpoints/apiserver/config"
	"github.com/binpoints/apiserver/internal/storage"
	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

// Services bundles every use case the HTTP layer needs.
type Services struct {
	Users       *UserService
	Staff       *CRUDService[types.Staff]
	Motivations *CRUDService[types.Motivation]
	Bins        *BinService
	Recyclables *CRUDService[types.Recyclable]
	Rewards     *CRUDService[types.Reward]
	Submissions *SubmissionService
	Purchases   *PurchaseService
	ActionLogs  *ActionLogService
	Images      *ImageService
}

// New wires the services over one store and object storage.
func New(s *store.Store, objects *storage.Storage, rules config.RulesConfig) *Services {
	users := NewUserService(s, rules)
	return &Services{
		Users:       users,
		Staff:       NewCRUDService[types.Staff](s, "Staff member not found"),
		Motivations: NewCRUDService[types.Motivation](s, "Motivation not found"),
		Bins:        NewBinService(s),
		Recyclables: NewCRUDService[types.Recyclable](s, msgRecyclableNotFound),
		Rewards:     NewCRUDService[types.Reward](s, msgRewardNotFound),
		Submissions: NewSubmissionService(s, users, NewSubmissionValidator(s, rules.MaxBinDistanceMeters)),
		Purchases:   NewPurchaseService(s, users),
		ActionLogs:  NewActionLogService(s),
		Images:      NewImageService(objects),
	}
}
