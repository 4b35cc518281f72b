package auth

import (
	"logis-backoffice/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Action: 권한 체크 대상 작업
type Action string

const (
	ActionUploadOrders    Action = "inspection.upload"
	ActionScanInspection  Action = "inspection.scan"
	ActionManageBatches   Action = "inspection.batches"
	ActionViewLogs        Action = "inspection.logs"
	ActionManageSessions  Action = "inventory.sessions"
	ActionScanInventory   Action = "inventory.scan"
	ActionManageCatalog   Action = "catalog.manage"
	ActionManageInventory Action = "inventory.records"
	ActionManageUsers     Action = "auth.users"
)

// 역할별 허용 작업. 데코레이터 대신 핸들러 진입부에서 명시적으로 호출한다.
var permissions = map[models.UserRole]map[Action]bool{
	models.RoleAdmin: {
		ActionUploadOrders:    true,
		ActionScanInspection:  true,
		ActionManageBatches:   true,
		ActionViewLogs:        true,
		ActionManageSessions:  true,
		ActionScanInventory:   true,
		ActionManageCatalog:   true,
		ActionManageInventory: true,
		ActionManageUsers:     true,
	},
	models.RoleWorker: {
		ActionScanInspection: true,
		ActionViewLogs:       true,
		ActionScanInventory:  true,
	},
}

// Can은 (역할, 작업) 조합의 허용 여부를 반환한다.
func Can(role models.UserRole, action Action) bool {
	allowed, ok := permissions[role]
	if !ok {
		return false
	}
	return allowed[action]
}

// Require는 권한이 없으면 403 에러를 반환한다.
func Require(c *fiber.Ctx, action Action) error {
	if !Can(CurrentRole(c), action) {
		return fiber.NewError(fiber.StatusForbidden, "이 작업을 수행할 권한이 없습니다.")
	}
	return nil
}
