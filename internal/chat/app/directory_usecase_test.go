package app

import (
	"context"
	"errors"
	"testing"

	"service_marketplace/internal/chat/domain"
	memberdomain "service_marketplace/internal/member/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDirectoryUseCase_ListPeers(t *testing.T) {
	ctx := context.Background()
	mockMsgRepo := new(MockMessageRepository)
	mockMembers := new(MockMemberRepository)

	mockMsgRepo.On("DistinctPeers", ctx, "alice").Return([]string{"carol", "bob", "ghost", "banned"}, nil)
	mockMembers.On("FindByIDs", ctx, []string{"carol", "bob", "ghost", "banned"}).Return([]memberdomain.Member{
		{MemberID: "carol", Fullname: "Carol", Status: memberdomain.MemberStatusOnLine},
		{MemberID: "bob", Fullname: "Bob", Status: memberdomain.MemberStatusOffLine},
		{MemberID: "banned", Fullname: "Mallory", Status: memberdomain.MemberStatusBan},
	}, nil)

	uc := NewDirectoryUseCase(mockMsgRepo, mockMembers)
	peers, err := uc.ListPeers(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, []domain.ChatPeer{
		{Identity: "bob", DisplayName: "Bob", Type: domain.PeerTypeUser},
		{Identity: "carol", DisplayName: "Carol", Type: domain.PeerTypeUser},
	}, peers)
	mockMsgRepo.AssertExpectations(t)
	mockMembers.AssertExpectations(t)
}

func TestDirectoryUseCase_SameNameOrderedByIdentity(t *testing.T) {
	ctx := context.Background()
	mockMsgRepo := new(MockMessageRepository)
	mockMembers := new(MockMemberRepository)

	mockMsgRepo.On("DistinctPeers", ctx, "alice").Return([]string{"u2", "u1"}, nil)
	mockMembers.On("FindByIDs", ctx, mock.Anything).Return([]memberdomain.Member{
		{MemberID: "u2", Fullname: "Sam"},
		{MemberID: "u1", Fullname: "Sam"},
	}, nil)

	peers, err := NewDirectoryUseCase(mockMsgRepo, mockMembers).ListPeers(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.Equal(t, "u1", peers[0].Identity)
	assert.Equal(t, "u2", peers[1].Identity)
}

func TestDirectoryUseCase_NoPeersSkipsLookup(t *testing.T) {
	ctx := context.Background()
	mockMsgRepo := new(MockMessageRepository)
	mockMembers := new(MockMemberRepository)
	mockMsgRepo.On("DistinctPeers", ctx, "alice").Return([]string{}, nil)

	peers, err := NewDirectoryUseCase(mockMsgRepo, mockMembers).ListPeers(ctx, "alice")

	require.NoError(t, err)
	assert.NotNil(t, peers)
	assert.Empty(t, peers)
	mockMembers.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
}

func TestDirectoryUseCase_LookupFailureIsStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	mockMsgRepo := new(MockMessageRepository)
	mockMembers := new(MockMemberRepository)
	mockMsgRepo.On("DistinctPeers", ctx, "alice").Return([]string{"bob"}, nil)
	mockMembers.On("FindByIDs", ctx, []string{"bob"}).Return(nil, errors.New("pg down"))

	_, err := NewDirectoryUseCase(mockMsgRepo, mockMembers).ListPeers(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestDirectoryUseCase_InvalidUser(t *testing.T) {
	ctx := context.Background()
	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("DistinctPeers", ctx, "").Return(nil, domain.ErrValidation)

	_, err := NewDirectoryUseCase(mockMsgRepo, new(MockMemberRepository)).ListPeers(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
