package sale

import "vendorsales-backend/internal/apperr"

var (
	ErrSaleNotFound     = apperr.NotFound("sale not found")
	ErrProductNotFound  = apperr.NotFound("product not found")
	ErrVendorNotFound   = apperr.NotFound("vendor not found")
	ErrProductInactive  = apperr.Validation("product is not active")
	ErrVendorInactive   = apperr.Validation("vendor is not active")
	ErrVendorRequired   = apperr.Validation("vendor_id is required when an admin submits a sale")
	ErrInvalidPrice     = apperr.Validation("sale_price must be greater than zero")
	ErrInvalidChannel   = apperr.Validation("channel must be one of store, online, marketplace, other")
	ErrReasonRequired   = apperr.Validation("rejection reason is required")
	ErrReasonTooLong    = apperr.Validation("rejection reason must be at most 500 characters")
	ErrAlreadyDecided   = apperr.Conflict("sale has already been decided")
	ErrSubmitForbidden  = apperr.Forbidden("only vendors and admins can submit sales")
	ErrRiskUnavailable  = apperr.Unavailable("risk assessment unavailable, try again later")
	ErrInvalidDateRange = apperr.Validation("from must be before to")
)
