package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"  // 관리자
	RoleWorker UserRole = "worker" // 작업자
)

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Name         string   `gorm:"size:50;not null"` // 작업자 표시명 (로그에 기록됨)
	Role         UserRole `gorm:"size:20;not null;default:'worker'"`
	IsApproved   bool     `gorm:"not null;default:false"` // 승인 전에는 로그인 불가
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
