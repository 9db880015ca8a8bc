package models

import "time"

const (
	ItemStatusPending = "pending"
	ItemStatusKeep    = "keep"
	ItemStatusToss    = "toss"
	ItemStatusMaybe   = "maybe"
)

// Inventory is a shared collection of belongings
type Inventory struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	InviteCode  string `json:"invite_code" gorm:"uniqueIndex"`
	OwnerID     string `json:"owner_id" gorm:"index;not null"`

	Members []InventoryMember `json:"members,omitempty" gorm:"foreignKey:InventoryID"`
	Items   []Item            `json:"items,omitempty" gorm:"foreignKey:InventoryID"`

	Timestamps
}

// InventoryMember grants a user access to an inventory
type InventoryMember struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	InventoryID    string    `json:"inventory_id" gorm:"uniqueIndex:idx_inventory_member;not null"`
	ExternalUserID string    `json:"external_user_id" gorm:"uniqueIndex:idx_inventory_member;not null"`
	Role           string    `json:"role" gorm:"type:varchar(16);default:'member'"` // owner, member
	JoinedAt       time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// Item is a photographed belonging
type Item struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	InventoryID string `json:"inventory_id" gorm:"index;not null"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`

	// 🖼️ Photo: PhotoKey is the R2 object key, PhotoURL a public/legacy URL
	PhotoKey string `json:"-"`
	PhotoURL string `json:"photo_url,omitempty"`

	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"`

	Status      string `json:"status" gorm:"type:varchar(16);default:'pending'"`
	Decision    string `json:"decision,omitempty" gorm:"type:varchar(8)"`
	CreatedByID string `json:"created_by_id" gorm:"index"`

	Timestamps
}

// Vote is a member's keep/toss/maybe opinion on an item (one per member)
type Vote struct {
	ID             string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ItemID         string `json:"item_id" gorm:"uniqueIndex:idx_item_vote;not null"`
	ExternalUserID string `json:"external_user_id" gorm:"uniqueIndex:idx_item_vote;not null"`
	Vote           string `json:"vote" gorm:"type:varchar(8);not null"`

	Timestamps
}
