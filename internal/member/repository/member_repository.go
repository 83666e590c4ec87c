package repository

import (
	"context"
	"fmt"

	"service_marketplace/internal/member/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// MemberRepository definition member directory lookup
type MemberRepository interface {
	// FindByIDs members whose member_id is in ids; unknown ids are simply absent
	FindByIDs(ctx context.Context, ids []string) ([]domain.Member, error)
}

type memberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository create a MemberRepository
func NewMemberRepository(db *pgxpool.Pool) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Member, error) {
	if len(ids) == 0 {
		return []domain.Member{}, nil
	}

	rows, err := r.db.Query(ctx, "SELECT member_id, fullname, status FROM member WHERE member_id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var (
			m      domain.Member
			status int
		)
		if err := rows.Scan(&m.MemberID, &m.Fullname, &status); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Status = domain.MemberStatus(status)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
