package models

import (
	"time"

	"github.com/google/uuid"
)

// Image represents the metadata of one synced photo stored in the database.
// JSON field names match the contract the frontend already consumes.
type Image struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FileID        string     `gorm:"uniqueIndex;not null" json:"fileId"`
	Name          string     `json:"name"`
	MimeType      string     `json:"mimeType"`
	Latitude      *float64   `json:"latitude"`
	Longitude     *float64   `json:"longitude"`
	Timestamp     time.Time  `gorm:"index;not null" json:"timestamp"`
	UploadedBy    string     `gorm:"index" json:"uploadedBy"`
	District      string     `gorm:"default:''" json:"district"`
	Tehsil        string     `gorm:"default:''" json:"tehsil"`
	Village       string     `gorm:"default:''" json:"village"`
	Country       string     `gorm:"default:''" json:"country"`
	StorageRef    string     `json:"storageRef"`
	LastCheckedAt *time.Time `json:"lastCheckedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName keeps the collection name the previous deployment used.
func (Image) TableName() string {
	return "images"
}
