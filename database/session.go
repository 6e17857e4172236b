package database

import (
	"gorm.io/gorm"
	"time"
)

// Session rows are minted by the external auth flow, this service only reads them.
type Session struct {
	gorm.Model
	UserId uint      `json:"UserId" gorm:"index"`
	User   User      `json:"User" gorm:"foreignKey:UserId;references:ID;constraint:OnUpdate:CASCADE,OnDelete:NO ACTION;"`
	Token  string    `gorm:"column:token;primaryKey;type:varchar(43)"`
	Expiry time.Time `gorm:"column:expiry;index"`
}

func UserBySessionToken(DB *gorm.DB, token string, now time.Time) (*User, error) {
	var session Session
	if err := DB.Preload("User").First(&session, "token = ? AND expiry > ?", token, now).Error; err != nil {
		return nil, err
	}
	return &session.User, nil
}
