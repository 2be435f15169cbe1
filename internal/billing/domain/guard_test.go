package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanFinalize(t *testing.T) {
	cases := []struct {
		name   string
		in     GuardInput
		ok     bool
		reason BlockReason
	}{
		{"settled cashier", GuardInput{Settled: true, Role: "cashier", RoleAllowed: true, LicenseActive: true}, true, BlockNone},
		{"not settled", GuardInput{Settled: false, Role: "cashier", RoleAllowed: true, LicenseActive: true}, false, BlockNotSettled},
		{"waiter", GuardInput{Settled: true, Role: "waiter", RoleAllowed: false, LicenseActive: true}, false, BlockRoleForbidden},
		{"expired license", GuardInput{Settled: true, Role: "admin", RoleAllowed: true, LicenseActive: false}, false, BlockLicenseInactive},
		{"root bypasses license", GuardInput{Settled: true, Role: RoleRoot, RoleAllowed: true, LicenseActive: false}, true, BlockNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := CanFinalize(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestBlockedErrorMatchesSentinel(t *testing.T) {
	var err error = &BlockedError{Reason: BlockNotSettled}
	assert.True(t, errors.Is(err, ErrFinalizeBlocked))

	var blocked *BlockedError
	assert.True(t, errors.As(err, &blocked))
	assert.Equal(t, BlockNotSettled, blocked.Reason)
}
