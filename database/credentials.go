package database

import (
	"gorm.io/gorm"
	"time"
)

// CalendarCredential holds a user's calendar OAuth tokens. Rows are created by
// the external authorization flow; the sync engine refreshes or invalidates them.
type CalendarCredential struct {
	Model
	UserId       uint      `json:"user_id" gorm:"uniqueIndex"`
	User         User      `json:"-" gorm:"foreignKey:UserId;references:ID;constraint:OnUpdate:CASCADE,OnDelete:NO ACTION;"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"token_expiry"`
	Connected    bool      `json:"connected" gorm:"index"`
}

// ConnectedCredentials returns every credential eligible for a sync pass.
func ConnectedCredentials(DB *gorm.DB) ([]CalendarCredential, error) {
	var creds []CalendarCredential
	if err := DB.Preload("User").Where("connected = ? AND access_token <> ?", true, "").Find(&creds).Error; err != nil {
		return nil, err
	}
	return creds, nil
}

// DisconnectCalendar clears the access token and marks the credential as needing
// re-authorization. The user is skipped by future sync passes until they reconnect.
func DisconnectCalendar(DB *gorm.DB, userId uint) error {
	return DB.Model(&CalendarCredential{}).
		Where("user_id = ?", userId).
		Updates(map[string]interface{}{"connected": false, "access_token": ""}).Error
}

func StoreRefreshedToken(DB *gorm.DB, userId uint, accessToken string, refreshToken string, expiry time.Time) error {
	updates := map[string]interface{}{
		"access_token": accessToken,
		"token_expiry": expiry,
	}
	// providers occasionally rotate the refresh token as well
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return DB.Model(&CalendarCredential{}).Where("user_id = ?", userId).Updates(updates).Error
}
