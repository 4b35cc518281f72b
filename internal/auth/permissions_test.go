package auth

import (
	"testing"

	"logis-backoffice/internal/models"
)

func TestCan(t *testing.T) {
	cases := []struct {
		role   models.UserRole
		action Action
		want   bool
	}{
		{models.RoleAdmin, ActionUploadOrders, true},
		{models.RoleAdmin, ActionManageSessions, true},
		{models.RoleWorker, ActionScanInspection, true},
		{models.RoleWorker, ActionScanInventory, true},
		{models.RoleWorker, ActionUploadOrders, false},
		{models.RoleWorker, ActionManageSessions, false},
		{models.RoleWorker, ActionManageBatches, false},
		{models.RoleWorker, ActionManageCatalog, false},
		{models.RoleAdmin, ActionManageUsers, true},
		{models.RoleWorker, ActionManageUsers, false},
		{models.UserRole("unknown"), ActionScanInspection, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action); got != tc.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}
