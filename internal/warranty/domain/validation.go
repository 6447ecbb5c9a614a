package domain

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NewValidator returns a validator that knows the invariants of the warranty
// records: non-negative purchase prices and endDate = startDate + period.
// Field names in errors are the JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(validateUserProduct, UserProduct{})
	v.RegisterStructValidation(validateCreateUserProduct, CreateUserProductRequest{})
	v.RegisterStructValidation(validateWarranty, Warranty{})
	v.RegisterStructValidation(validateCreateWarranty, CreateWarrantyRequest{})
	return v
}

func validatePrice(sl validator.StructLevel, price *decimal.Decimal) {
	if price != nil && price.IsNegative() {
		sl.ReportError(price, "purchasePrice", "PurchasePrice", "gte", "0")
	}
}

func validatePeriod(sl validator.StructLevel, start, end Date, period int) {
	if start.IsZero() {
		sl.ReportError(start, "startDate", "StartDate", "required", "")
		return
	}
	if end.IsZero() {
		sl.ReportError(end, "endDate", "EndDate", "required", "")
		return
	}
	if end.Before(start.Time) {
		sl.ReportError(end, "endDate", "EndDate", "gtefield", "startDate")
		return
	}
	if period > 0 && !end.Equal(start.AddDays(period)) {
		sl.ReportError(end, "endDate", "EndDate", "period", start.AddDays(period).String())
	}
}

func validateUserProduct(sl validator.StructLevel) {
	up := sl.Current().Interface().(UserProduct)
	validatePrice(sl, up.PurchasePrice)
}

func validateCreateUserProduct(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateUserProductRequest)
	validatePrice(sl, req.PurchasePrice)
}

func validateWarranty(sl validator.StructLevel) {
	w := sl.Current().Interface().(Warranty)
	validatePeriod(sl, w.StartDate, w.EndDate, w.WarrantyPeriod)
}

func validateCreateWarranty(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateWarrantyRequest)
	validatePeriod(sl, req.StartDate, req.EndDate, req.WarrantyPeriod)
}
