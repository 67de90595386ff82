package models

type Parent struct {
	ID          uint   `json:"id" gorm:"primary_key"`
	FamilyID    uint   `json:"family_id" gorm:"not null;index"`
	Lang        string `json:"lang"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	FirebaseUID string `json:"firebase_uid" gorm:"uniqueIndex"`
	DeviceToken string `json:"-"` // FCM токен для push-уведомлений родителю
}
