// Package model defines domain types used by the service.
package model

// Category classifies a catalog entry.
const (
	CategoryGeneral  = "general"
	CategoryPharmacy = "pharmacy"
)

// DefaultDeliveryOptions is assigned to newly ingested products that do
// not specify their own.
var DefaultDeliveryOptions = []string{"pickup", "delivery"}

// Store represents one physical store selling through the marketplace.
type Store struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Type     string `json:"type"`
}

// Product represents the current state of a catalog entry.
//
// Pharmacy-only fields are omitted from JSON when unset so general items
// stay free of empty drug metadata.
type Product struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Price           float64  `json:"price"`
	Stock           int64    `json:"stock"`
	StoreID         int64    `json:"storeId"`
	Category        string   `json:"category,omitempty"`
	Image           string   `json:"image,omitempty"`
	DeliveryOptions []string `json:"deliveryOptions,omitempty"`

	DrugName              string `json:"drugName,omitempty"`
	BrandName             string `json:"brandName,omitempty"`
	GenericEquivalent     string `json:"genericEquivalent,omitempty"`
	DosageForm            string `json:"dosageForm,omitempty"`
	Strength              string `json:"strength,omitempty"`
	ActiveIngredients     string `json:"activeIngredients,omitempty"`
	Warnings              string `json:"warnings,omitempty"`
	DosesPerPack          int64  `json:"dosesPerPack,omitempty"`
	PrescriptionRequired  *bool  `json:"prescriptionRequired,omitempty"`
}

// Record is a candidate catalog entry extracted from an attachment. Fields
// are pointers so a field absent from the input stays distinguishable from a
// zero value; only supplied fields are merged during reconciliation.
type Record struct {
	Name                 string
	Description          *string
	Price                *float64
	Stock                *int64
	Category             *string
	Image                *string
	DrugName             *string
	BrandName            *string
	GenericEquivalent    *string
	DosageForm           *string
	Strength             *string
	ActiveIngredients    *string
	Warnings             *string
	DosesPerPack         *int64
	PrescriptionRequired *bool
}

// Attachment is one file carried by an inbound message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is a parsed inbound mailbox message.
type Message struct {
	From        string
	Subject     string
	Attachments []Attachment
}
