package handlers

import (
	"errors"
	"fmt"
	"testing"

	"referral-reward-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrSelfReferral, fiber.StatusBadRequest},
		{services.ErrActionNotFound, fiber.StatusBadRequest},
		{services.ErrNotAuthorized, fiber.StatusForbidden},
		{services.ErrNotFound, fiber.StatusNotFound},
		{services.ErrAlreadyProcessed, fiber.StatusConflict},
		{services.ErrAlreadyCompleted, fiber.StatusConflict},
		{services.ErrAlreadyReferred, fiber.StatusConflict},
		{services.ErrQuotaExceeded, fiber.StatusTooManyRequests},
		{services.ErrExpired, fiber.StatusGone},
		{services.ErrWalletCredit, fiber.StatusBadGateway},
		{errors.New("database on fire"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusForError(tc.err), "error: %v", tc.err)
	}

	// Wrapped errors still map through errors.Is.
	wrapped := fmt.Errorf("%w: connection refused", services.ErrWalletCredit)
	assert.Equal(t, fiber.StatusBadGateway, statusForError(wrapped))
}
