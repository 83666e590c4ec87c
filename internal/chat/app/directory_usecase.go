package app

import (
	"context"
	"errors"
	"sort"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/internal/chat/repository"
	memberrepo "service_marketplace/internal/member/repository"
	errprocess "service_marketplace/pkg/err"
)

// DirectoryUseCase chat directory: everyone a member has talked to, with display names
type DirectoryUseCase struct {
	msgRepo repository.MessageRepository
	members memberrepo.MemberRepository
}

// NewDirectoryUseCase create DirectoryUseCase
func NewDirectoryUseCase(msgRepo repository.MessageRepository, members memberrepo.MemberRepository) *DirectoryUseCase {
	return &DirectoryUseCase{msgRepo: msgRepo, members: members}
}

// ListPeers peers of userID ordered by display name; unknown or hidden members are left out
func (uc *DirectoryUseCase) ListPeers(ctx context.Context, userID string) ([]domain.ChatPeer, error) {
	ids, err := uc.msgRepo.DistinctPeers(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, errprocess.Wrap(domain.ErrStoreUnavailable, err)
	}

	peers := []domain.ChatPeer{}
	if len(ids) == 0 {
		return peers, nil
	}

	members, err := uc.members.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errprocess.Wrap(domain.ErrStoreUnavailable, err)
	}

	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if !m.Visible() {
			continue
		}
		if _, ok := seen[m.MemberID]; ok {
			continue
		}
		seen[m.MemberID] = struct{}{}
		peers = append(peers, domain.ChatPeer{
			Identity:    m.MemberID,
			DisplayName: m.Fullname,
			Type:        domain.PeerTypeUser,
		})
	}

	sort.Slice(peers, func(i, j int) bool {
		if peers[i].DisplayName != peers[j].DisplayName {
			return peers[i].DisplayName < peers[j].DisplayName
		}
		return peers[i].Identity < peers[j].Identity
	})
	return peers, nil
}
