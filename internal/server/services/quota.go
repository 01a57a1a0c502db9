package services

import (
	"context"

	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"github.com/dmitrijs2005/cryptocloud/internal/server/repositories/repomanager"
)

// QuotaPolicy decides the byte ceiling reported for an owner.
type QuotaPolicy interface {
	Limit(ctx context.Context, owner string) uint64
}

// FlatQuota gives every owner the same limit.
type FlatQuota uint64

func (q FlatQuota) Limit(context.Context, string) uint64 { return uint64(q) }

// QuotaService reports usage. Nothing in the write path enforces the limit.
type QuotaService struct {
	repomanager repomanager.RepositoryManager
	policy      QuotaPolicy
}

func NewQuotaService(rm repomanager.RepositoryManager, policy QuotaPolicy) *QuotaService {
	return &QuotaService{repomanager: rm, policy: policy}
}

func (s *QuotaService) Usage(ctx context.Context, owner string) (*models.Usage, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	used, err := s.repomanager.Entries().SumFileSizes(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &models.Usage{BytesUsed: used, BytesLimit: s.policy.Limit(ctx, owner)}, nil
}
