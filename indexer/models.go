package indexer

import (
	"time"

	"gorm.io/gorm"
)

// ListingStatus tracks a listing through its lifecycle.
type ListingStatus string

const (
	StatusOpen ListingStatus = "OPEN"
	StatusSold ListingStatus = "SOLD"
)

// Listing is the off-ledger projection of one trade state. Addresses are
// stored in their bech32 form.
type Listing struct {
	TradeState   string        `gorm:"size:64;primaryKey"`
	Seller       string        `gorm:"size:64;index"`
	Marketplace  string        `gorm:"size:64;index"`
	Asset        string        `gorm:"size:64;index"`
	AssetAccount string        `gorm:"size:64"`
	Currency     string        `gorm:"size:64"`
	Price        uint64        `gorm:"not null"`
	Status       ListingStatus `gorm:"size:16;index"`
	Buyer        string        `gorm:"size:64"`
	Fee          uint64
	Net          uint64
	SoldAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sale records every executed sale, including re-listings of the same
// trade state address.
type Sale struct {
	ID          uint   `gorm:"primaryKey"`
	TradeState  string `gorm:"size:64;index"`
	Marketplace string `gorm:"size:64;index"`
	Seller      string `gorm:"size:64"`
	Buyer       string `gorm:"size:64;index"`
	Asset       string `gorm:"size:64"`
	Price       uint64
	Fee         uint64
	Net         uint64
	CreatedAt   time.Time
}

// AutoMigrate creates or updates the index tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Listing{}, &Sale{})
}
