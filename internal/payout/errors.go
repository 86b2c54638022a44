package payout

import "vendorsales-backend/internal/apperr"

var (
	ErrEmptySelection     = apperr.Validation("select at least one commission")
	ErrInvalidPeriod      = apperr.Validation("period_end must not be before period_start")
	ErrFailReasonRequired = apperr.Validation("a failure reason is required")
	ErrCommissionNotFound = apperr.NotFound("commission not found")
	ErrBatchNotFound      = apperr.NotFound("payment batch not found")
	ErrNothingToClaim     = apperr.Conflict("none of the selected commissions can be claimed")
	ErrConcurrentClaim    = apperr.Conflict("some commissions were claimed by another batch, reload and retry")
	ErrBatchState         = apperr.Conflict("payment batch cannot move to that status")
)
