package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Device types recorded on login activity.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// LoginActivity is one authentication attempt. Rows are append-only.
// UserID is nil when the attempted email matched no account.
type LoginActivity struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     *primitive.ObjectID `bson:"user_id" json:"user_id"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	IP         string              `bson:"ip" json:"ip"`
	UserAgent  string              `bson:"user_agent" json:"user_agent"`
	Success    bool                `bson:"success" json:"success"`
	DeviceType string              `bson:"device_type" json:"device_type"`
	Location   string              `bson:"location,omitempty" json:"location,omitempty"`
}
