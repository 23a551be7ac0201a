package model

import "time"

type AuditAction string

const (
	//在庫を更新した操作。
	AuditActionUpdateStock AuditAction = "UPDATE_STOCK"
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//ロール変更
	AuditActionChangeRole AuditAction = "CHANGE_ROLE"
	//ストライク付与
	AuditActionIssueStrike AuditAction = "ISSUE_STRIKE"
	//出品者申請の審査
	AuditActionReviewSellerApplication AuditAction = "REVIEW_SELLER_APPLICATION"
	//強制ログアウト
	AuditActionForceLogout AuditAction = "FORCE_LOGOUT"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceProduct           AuditResourceType = "product"
	AuditResourceOrder             AuditResourceType = "order"
	AuditResourceUser              AuditResourceType = "user"
	AuditResourceSellerApplication AuditResourceType = "seller_application"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actorUserId"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resourceType"`
	ResourceID   int64             `gorm:"not null;index" json:"resourceId"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"beforeJson"`
	AfterJSON  string `gorm:"type:text" json:"afterJson"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}
