package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarrantyStatus is derived by the backend.
type WarrantyStatus string

const (
	WarrantyActive    WarrantyStatus = "ACTIVE"
	WarrantyExpired   WarrantyStatus = "EXPIRED"
	WarrantyCancelled WarrantyStatus = "CANCELLED"
)

// ClaimStatus transitions are controlled by the backend.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "PENDING"
	ClaimApproved ClaimStatus = "APPROVED"
	ClaimRejected ClaimStatus = "REJECTED"
	ClaimResolved ClaimStatus = "RESOLVED"
)

type User struct {
	ID          int64     `json:"id" validate:"required"`
	FirebaseUID string    `json:"firebaseUid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

type Company struct {
	ID                 int64     `json:"id" validate:"required"`
	Name               string    `json:"name" validate:"required"`
	ContactPhone       string    `json:"contactPhone,omitempty"`
	ContactEmail       string    `json:"contactEmail,omitempty"`
	Website            string    `json:"website,omitempty"`
	Address            string    `json:"address,omitempty"`
	ClaimProcess       string    `json:"claimProcess,omitempty"`
	ClaimURL           string    `json:"claimUrl,omitempty"`
	SupportHours       string    `json:"supportHours,omitempty"`
	ReturnInstructions string    `json:"returnInstructions,omitempty"`
	CreatedAt          Timestamp `json:"createdAt"`
	UpdatedAt          Timestamp `json:"updatedAt"`
}

type Product struct {
	ID          int64     `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Brand       string    `json:"brand,omitempty"`
	ModelNumber string    `json:"modelNumber" validate:"required"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

// UserProduct is a product owned by a user, with its purchase details.
type UserProduct struct {
	ID               int64            `json:"id" validate:"required"`
	UserID           int64            `json:"userId,omitempty"`
	ProductID        int64            `json:"productId,omitempty"`
	SerialNumber     string           `json:"serialNumber,omitempty"`
	PurchaseDate     Date             `json:"purchaseDate"`
	PurchasePrice    *decimal.Decimal `json:"purchasePrice,omitempty"`
	PurchaseLocation string           `json:"purchaseLocation,omitempty"`
	ReceiptNumber    string           `json:"receiptNumber,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        Timestamp        `json:"createdAt"`
	UpdatedAt        Timestamp        `json:"updatedAt"`
}

type Warranty struct {
	ID             int64          `json:"id" validate:"required"`
	UserID         int64          `json:"userId,omitempty"`
	CompanyID      int64          `json:"companyId,omitempty"`
	UserProductID  int64          `json:"userProductId,omitempty"`
	StartDate      Date           `json:"startDate"`
	EndDate        Date           `json:"endDate"`
	WarrantyPeriod int            `json:"warrantyPeriod,omitempty" validate:"gte=0"`
	WarrantyType   string         `json:"warrantyType,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Status         WarrantyStatus `json:"status" validate:"required,oneof=ACTIVE EXPIRED CANCELLED"`
	CreatedAt      Timestamp      `json:"createdAt"`
	UpdatedAt      Timestamp      `json:"updatedAt"`
}

// PastEnd reports whether the end date lies before now's calendar day.
// It is a display hint; Status as reported by the backend stays authoritative.
func (w Warranty) PastEnd(now time.Time) bool {
	if w.EndDate.IsZero() {
		return false
	}
	return w.EndDate.Before(DateOf(now).Time)
}

// DaysRemaining returns the whole days until the end date, negative once past.
func (w Warranty) DaysRemaining(now time.Time) int {
	return int(w.EndDate.Sub(DateOf(now).Time).Hours() / 24)
}

type Claim struct {
	ID                int64       `json:"id" validate:"required"`
	WarrantyID        int64       `json:"warrantyId,omitempty"`
	ClaimDate         Date        `json:"claimDate"`
	Status            ClaimStatus `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED RESOLVED"`
	ReferenceNumber   string      `json:"referenceNumber,omitempty"`
	IssueDescription  string      `json:"issueDescription"`
	ResolutionDetails string      `json:"resolutionDetails,omitempty"`
	CreatedAt         Timestamp   `json:"createdAt"`
	UpdatedAt         Timestamp   `json:"updatedAt"`
}

func (u User) EntityID() int64        { return u.ID }
func (c Company) EntityID() int64     { return c.ID }
func (p Product) EntityID() int64     { return p.ID }
func (u UserProduct) EntityID() int64 { return u.ID }
func (w Warranty) EntityID() int64    { return w.ID }
func (c Claim) EntityID() int64       { return c.ID }
