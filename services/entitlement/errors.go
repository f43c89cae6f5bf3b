package entitlement

import (
	"errors"

	"idauth-entitlement/pkg/errutil"
)

// Stable entitlement error codes surfaced to callers. Validation raises
// exactly one of these per call; the first failing rule wins.
const (
	CodePartnerNotRegistered   = "PARTNER_NOT_REGISTERED"
	CodePartnerDeactivated     = "PARTNER_DEACTIVATED"
	CodeInvalidPolicyID        = "INVALID_POLICY_ID"
	CodePartnerPolicyNotActive = "PARTNER_POLICY_NOT_ACTIVE"
	CodeInvalidLicenseKey      = "INVALID_LICENSEKEY"
	CodeLicenseKeySuspended    = "LICENSEKEY_SUSPENDED"
	CodeLicenseKeyExpired      = "LICENSEKEY_EXPIRED"

	CodePayloadDeserialization = "PAYLOAD_DESERIALIZATION"
)

var (
	ErrPartnerNotRegistered = errutil.Forbidden(CodePartnerNotRegistered,
		"Partner is not registered")
	ErrPartnerDeactivated = errutil.Forbidden(CodePartnerDeactivated,
		"Partner is deactivated")
	ErrInvalidPolicyID = errutil.Forbidden(CodeInvalidPolicyID,
		"Partner policy ID is not valid")
	ErrPartnerPolicyNotActive = errutil.Forbidden(CodePartnerPolicyNotActive,
		"Partner policy is not active")
	ErrInvalidLicenseKey = errutil.Forbidden(CodeInvalidLicenseKey,
		"License key of MISP is not valid")
	ErrLicenseKeySuspended = errutil.Forbidden(CodeLicenseKeySuspended,
		"License key of MISP is suspended")
	ErrLicenseKeyExpired = errutil.Forbidden(CodeLicenseKeyExpired,
		"License key of MISP has expired")
)

// errMissingRecordID rejects event sub-documents that decode but do not name
// the record they address. Every upsert is keyed on the record identifier; an
// empty key must never reach a query, where gorm struct conditions would drop
// it and match an arbitrary row.
var errMissingRecordID = errors.New("missing record identifier")

// newPayloadError wraps an event sub-document decode failure so the
// synchronizer caller can tell a malformed payload apart from a storage
// failure.
func newPayloadError(section string, err error) error {
	return errutil.UnprocessableEntity(CodePayloadDeserialization,
		"unable to decode event section "+section, errutil.WithErr(err))
}
