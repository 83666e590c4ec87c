package domain

// MemberStatus 用來表示使用者狀態
type MemberStatus int

// 状态: 0=offline, 1=online, 2=ban ,3=delete
const (
	// MemberStatusOffLine 使用者離線
	MemberStatusOffLine MemberStatus = iota
	// MemberStatusOnLine 使用者在線
	MemberStatusOnLine
	// MemberStatusBan 使用者被封鎖
	MemberStatusBan
	// MemberStatusDelete 使用者已刪除
	MemberStatusDelete
)

// Member 用來表示使用者, only the fields the chat directory reads
type Member struct {
	MemberID string
	Fullname string
	Status   MemberStatus
}

// Visible deleted and banned members do not show up in chat directories
func (m Member) Visible() bool {
	return m.Status != MemberStatusDelete && m.Status != MemberStatusBan
}
