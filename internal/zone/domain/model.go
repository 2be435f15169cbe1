package domain

import "time"

// Zone is a preparation area (kitchen line, bar) that receives its own tickets.
type Zone struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(64);not null;uniqueIndex:ux_zones_name"`
	Code      string    `json:"code" gorm:"type:varchar(64);not null;uniqueIndex:ux_zones_code"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Zone) TableName() string { return "zones" }
