package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProductStatusActive   = "active"
	ProductStatusDraft    = "draft"
	ProductStatusArchived = "archived"

	DefaultLowStockThreshold = 10
)

type Variant struct {
	Name    string   `bson:"name" json:"name"`
	Options []string `bson:"options" json:"options"`
}

type Inventory struct {
	Quantity          int  `bson:"quantity" json:"quantity"`
	LowStockThreshold int  `bson:"lowStockThreshold" json:"lowStockThreshold"`
	TrackQuantity     bool `bson:"trackQuantity" json:"trackQuantity"`
}

type SEO struct {
	Title       string `bson:"title,omitempty" json:"title,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

type Product struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description" json:"description"`
	Price          float64            `bson:"price" json:"price"`
	CompareAtPrice float64            `bson:"compareAtPrice,omitempty" json:"compareAtPrice,omitempty"`
	SKU            string             `bson:"sku" json:"sku"`
	CategoryID     primitive.ObjectID `bson:"category" json:"category"`
	Images         []string           `bson:"images" json:"images"`
	Variants       []Variant          `bson:"variants" json:"variants"`
	Inventory      Inventory          `bson:"inventory" json:"inventory"`
	Status         string             `bson:"status" json:"status"`
	Featured       bool               `bson:"featured" json:"featured"`
	Tags           StringList         `bson:"tags" json:"tags"`
	SEO            SEO                `bson:"seo" json:"seo"`
	SalesCount     int                `bson:"salesCount" json:"salesCount"`
	Views          int                `bson:"views" json:"views"`
	InStock        bool               `bson:"-" json:"inStock"`
	IsLowStock     bool               `bson:"-" json:"isLowStock"`
	IsOnSale       bool               `bson:"-" json:"isOnSale"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductFilter narrows catalog listings. Zero values mean "no constraint",
// except Status which the caller resolves to a concrete value.
type ProductFilter struct {
	CategoryID *primitive.ObjectID
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	Status     string
	Featured   *bool
	Page       int64
	Limit      int64
}

// ProductUpdate carries a partial product update; nil fields are untouched.
type ProductUpdate struct {
	Name           *string
	Description    *string
	Price          *float64
	CompareAtPrice *float64
	SKU            *string
	CategoryID     *primitive.ObjectID
	Images         *[]string
	Variants       *[]Variant
	Inventory      *Inventory
	Status         *string
	Featured       *bool
	Tags           *[]string
	SEO            *SEO
}
