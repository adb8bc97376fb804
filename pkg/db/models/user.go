package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mehadihasan/bazarly-backend/pkg/enums"
)

// User is a customer or staff account.
type User struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string           `gorm:"column:name;not null"`
	Email              string           `gorm:"column:email;not null;uniqueIndex"`
	Phone              *string          `gorm:"column:phone"`
	PasswordHash       string           `gorm:"column:password_hash;not null"`
	Role               enums.MemberRole `gorm:"column:role;type:text;not null;default:'user'"`
	EmailVerified      bool             `gorm:"column:email_verified;not null;default:false"`
	VerificationCode   *string          `gorm:"column:verification_code"`
	VerificationSentAt *time.Time       `gorm:"column:verification_sent_at"`
	ResetCode          *string          `gorm:"column:reset_code"`
	ResetSentAt        *time.Time       `gorm:"column:reset_sent_at"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
