package repository

import (
	"context"
	"errors"
	"time"

	"service_marketplace/internal/member/domain"
	"service_marketplace/pkg/database"
	"service_marketplace/pkg/logger"

	"go.uber.org/zap"
)

// cachedMemberRepository read-through redis cache in front of another MemberRepository
type cachedMemberRepository struct {
	next  MemberRepository
	cache database.RedisRepository[domain.Member]
	ttl   time.Duration
}

// NewCachedMemberRepository wrap next with a redis cache; cache errors fall through to next
func NewCachedMemberRepository(next MemberRepository, cache database.RedisRepository[domain.Member], ttl time.Duration) MemberRepository {
	return &cachedMemberRepository{next: next, cache: cache, ttl: ttl}
}

func (r *cachedMemberRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Member, error) {
	var (
		found   = make([]domain.Member, 0, len(ids))
		missing []string
	)
	for _, id := range ids {
		m, err := r.cache.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, database.ErrCacheMiss) {
				logger.Log.Warn("member cache get", zap.String("member_id", id), zap.Error(err))
			}
			missing = append(missing, id)
			continue
		}
		found = append(found, m)
	}
	if len(missing) == 0 {
		return found, nil
	}

	loaded, err := r.next.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, m := range loaded {
		if err := r.cache.Set(ctx, m.MemberID, m, r.ttl); err != nil {
			logger.Log.Warn("member cache set", zap.String("member_id", m.MemberID), zap.Error(err))
		}
	}
	return append(found, loaded...), nil
}
