package shipping

import "strings"

// 追跡プロバイダの自由文ステータスを畳み込んだ正規ステータス。
type ShipStatus string

const (
	ShipStatusPending   ShipStatus = "PENDING"
	ShipStatusPacked    ShipStatus = "PACKED"
	ShipStatusShipped   ShipStatus = "SHIPPED"
	ShipStatusDelivered ShipStatus = "DELIVERED"
)

// NormalizeStatus はプロバイダの自由文を4値に正規化する。
// 大文字化したうえで部分一致。複数カテゴリに当たる文字列は先勝ち。
func NormalizeStatus(providerStatus string) ShipStatus {
	s := strings.ToUpper(providerStatus)

	if strings.Contains(s, "DELIVERED") || strings.Contains(s, "POD") {
		return ShipStatusDelivered
	}
	if strings.Contains(s, "OUT FOR DELIVERY") ||
		strings.Contains(s, "ON PROCESS") ||
		strings.Contains(s, "TRANSIT") ||
		strings.Contains(s, "PICK") {
		return ShipStatusShipped
	}
	if strings.Contains(s, "MANIFEST") || strings.Contains(s, "PACK") {
		return ShipStatusPacked
	}
	return ShipStatusPending
}
