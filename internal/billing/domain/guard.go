package domain

import "errors"

type BlockReason string

const (
	BlockNone            BlockReason = ""
	BlockNotSettled      BlockReason = "not_settled"
	BlockRoleForbidden   BlockReason = "role_forbidden"
	BlockLicenseInactive BlockReason = "license_inactive"
)

const RoleRoot = "root"

// GuardInput carries everything CanFinalize decides on.
type GuardInput struct {
	Settled       bool
	Role          string
	RoleAllowed   bool
	LicenseActive bool
}

// CanFinalize reports whether a sale may be closed and, when it may not, the
// first reason that blocks it. The root role bypasses the license gate.
func CanFinalize(in GuardInput) (bool, BlockReason) {
	if !in.RoleAllowed {
		return false, BlockRoleForbidden
	}
	if !in.LicenseActive && in.Role != RoleRoot {
		return false, BlockLicenseInactive
	}
	if !in.Settled {
		return false, BlockNotSettled
	}
	return true, BlockNone
}

var ErrFinalizeBlocked = errors.New("finalize_blocked")

// BlockedError reports a guard failure on finalize.
type BlockedError struct {
	Reason BlockReason
}

func (e *BlockedError) Error() string {
	return "finalize_blocked: " + string(e.Reason)
}

func (e *BlockedError) Is(target error) bool {
	return target == ErrFinalizeBlocked
}
