package auth

import (
	"strings"
	"time"

	"logis-backoffice/internal/config"
	"logis-backoffice/internal/database"
	"logis-backoffice/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
// 가입 직후에는 미승인 상태이며 관리자가 승인해야 로그인할 수 있다.
func RegisterHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "잘못된 요청입니다.")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Name = strings.TrimSpace(body.Name)

		if body.Email == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "이름, 이메일, 비밀번호는 필수입니다.")
		}

		var count int64
		database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "이미 등록된 이메일입니다.")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "비밀번호를 처리할 수 없습니다.")
		}

		// 최초 가입자는 자동으로 관리자 + 승인 처리 (셋업 편의)
		role := models.RoleWorker
		approved := false
		var total int64
		database.DB.Model(&models.User{}).Count(&total)
		if total == 0 {
			role = models.RoleAdmin
			approved = true
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         role,
			IsApproved:   approved,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "계정을 생성할 수 없습니다.")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":     true,
			"id":          user.ID,
			"email":       user.Email,
			"is_approved": user.IsApproved,
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "잘못된 요청입니다.")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "이메일 또는 비밀번호가 올바르지 않습니다.")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "이메일 또는 비밀번호가 올바르지 않습니다.")
		}

		if !user.IsApproved {
			return fiber.NewError(fiber.StatusForbidden, "관리자 승인 대기 중인 계정입니다.")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "토큰을 발급할 수 없습니다.")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"token":   token,
			"user": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}

// ApproveUser는 계정을 승인 상태로 전환한다. 이미 승인된 계정이면 그대로 반환.
func ApproveUser(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	if !user.IsApproved {
		if err := db.Model(&user).Update("is_approved", true).Error; err != nil {
			return nil, err
		}
		user.IsApproved = true
	}
	return &user, nil
}

// GET /api/auth/users
// 관리자용 계정 목록. 승인 대기 계정 확인에 쓰인다.
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := Require(c, ActionManageUsers); err != nil {
			return err
		}

		var users []models.User
		if err := database.DB.Order("created_at DESC").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "계정 목록을 조회할 수 없습니다.")
		}

		items := make([]fiber.Map, 0, len(users))
		for _, u := range users {
			items = append(items, fiber.Map{
				"id":          u.ID,
				"name":        u.Name,
				"email":       u.Email,
				"role":        u.Role,
				"is_approved": u.IsApproved,
				"created_at":  u.CreatedAt.Format(time.RFC3339),
			})
		}
		return c.JSON(fiber.Map{"success": true, "users": items})
	}
}

// POST /api/auth/users/:id/approve
// 가입 대기 계정을 승인한다. 승인 전에는 로그인할 수 없다.
func ApproveUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := Require(c, ActionManageUsers); err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "잘못된 계정 ID입니다.")
		}

		user, err := ApproveUser(database.DB, uint(id))
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "계정을 찾을 수 없습니다.")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "계정을 승인할 수 없습니다.")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "계정이 승인되었습니다.",
			"user": fiber.Map{
				"id":          user.ID,
				"name":        user.Name,
				"email":       user.Email,
				"is_approved": user.IsApproved,
			},
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(CtxUserIDKey).(uint)

		var user models.User
		if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "계정을 찾을 수 없습니다.")
		}

		return c.JSON(fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}
