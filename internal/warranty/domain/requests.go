package domain

import "github.com/shopspring/decimal"

// Create payloads carry every field except the server-assigned ones.

// CreateUserRequest is optional when registering: the server takes the
// identity from the verified token.
type CreateUserRequest struct {
	FirebaseUID string `json:"firebaseUid,omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	DisplayName string `json:"displayName,omitempty"`
}

type CreateCompanyRequest struct {
	Name               string `json:"name" validate:"required"`
	ContactPhone       string `json:"contactPhone,omitempty"`
	ContactEmail       string `json:"contactEmail,omitempty" validate:"omitempty,email"`
	Website            string `json:"website,omitempty" validate:"omitempty,url"`
	Address            string `json:"address,omitempty"`
	ClaimProcess       string `json:"claimProcess,omitempty"`
	ClaimURL           string `json:"claimUrl,omitempty" validate:"omitempty,url"`
	SupportHours       string `json:"supportHours,omitempty"`
	ReturnInstructions string `json:"returnInstructions,omitempty"`
}

type CreateProductRequest struct {
	Name        string `json:"name" validate:"required"`
	Brand       string `json:"brand,omitempty"`
	ModelNumber string `json:"modelNumber" validate:"required"`
}

type CreateUserProductRequest struct {
	UserID           int64            `json:"userId,omitempty"`
	ProductID        int64            `json:"productId" validate:"required"`
	SerialNumber     string           `json:"serialNumber,omitempty"`
	PurchaseDate     Date             `json:"purchaseDate"`
	PurchasePrice    *decimal.Decimal `json:"purchasePrice,omitempty"`
	PurchaseLocation string           `json:"purchaseLocation,omitempty"`
	ReceiptNumber    string           `json:"receiptNumber,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

type CreateWarrantyRequest struct {
	UserID         int64          `json:"userId,omitempty"`
	CompanyID      int64          `json:"companyId,omitempty"`
	UserProductID  int64          `json:"userProductId" validate:"required"`
	StartDate      Date           `json:"startDate"`
	EndDate        Date           `json:"endDate"`
	WarrantyPeriod int            `json:"warrantyPeriod,omitempty" validate:"gte=0"`
	WarrantyType   string         `json:"warrantyType,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Status         WarrantyStatus `json:"status" validate:"required,oneof=ACTIVE EXPIRED CANCELLED"`
}

// NewWarrantyRequest builds an ACTIVE warranty payload whose end date is
// derived from the start date and the period in days.
func NewWarrantyRequest(userProductID, companyID int64, start Date, periodDays int, warrantyType string) CreateWarrantyRequest {
	return CreateWarrantyRequest{
		UserProductID:  userProductID,
		CompanyID:      companyID,
		StartDate:      start,
		EndDate:        start.AddDays(periodDays),
		WarrantyPeriod: periodDays,
		WarrantyType:   warrantyType,
		Status:         WarrantyActive,
	}
}

type CreateClaimRequest struct {
	WarrantyID        int64       `json:"warrantyId" validate:"required"`
	ClaimDate         Date        `json:"claimDate"`
	Status            ClaimStatus `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED RESOLVED"`
	ReferenceNumber   string      `json:"referenceNumber,omitempty"`
	IssueDescription  string      `json:"issueDescription" validate:"required"`
	ResolutionDetails string      `json:"resolutionDetails,omitempty"`
}
