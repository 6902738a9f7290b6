package services

import "errors"

// Engine error taxonomy. Handlers map these onto HTTP statuses; callers are
// expected to test with errors.Is.
var (
	ErrSelfReferral     = errors.New("self referral not allowed")
	ErrAlreadyReferred  = errors.New("member already has a live referral")
	ErrQuotaExceeded    = errors.New("weekly referral limit reached")
	ErrNotFound         = errors.New("referral not found")
	ErrAlreadyProcessed = errors.New("referral already processed")
	ErrActionNotFound   = errors.New("action not available on this referral")
	ErrAlreadyCompleted = errors.New("action already completed")
	ErrExpired          = errors.New("referral expired")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrWalletCredit     = errors.New("wallet credit failed")
)
