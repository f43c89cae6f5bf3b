package entitlement

import (
	"context"
	"time"

	"idauth-entitlement/pkg/repository"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service resolves the effective policy for a partner credential triple and
// keeps the local entitlement records in sync with lifecycle events.
type Service struct {
	db       *gorm.DB
	mappings repository.Repository[PartnerMapping]
	partners repository.Repository[PartnerData]
	apiKeys  repository.Repository[APIKeyData]
	policies repository.Repository[PolicyData]
	licenses repository.Repository[MispLicenseData]

	// now is a hook for tests; records are validated against UTC time.
	now func() time.Time
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		mappings: repository.ProvideStore[PartnerMapping](p.DB),
		partners: repository.ProvideStore[PartnerData](p.DB),
		apiKeys:  repository.ProvideStore[APIKeyData](p.DB),
		policies: repository.ProvideStore[PolicyData](p.DB),
		licenses: repository.ProvideStore[MispLicenseData](p.DB),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ResolveRequest identifies a partner mapping by (partner_id, api_key) and a
// MISP license by direct key lookup. IncludeCertificate controls whether the
// partner certificate is echoed in the response.
type ResolveRequest struct {
	PartnerID          string `json:"partner_id" binding:"required"`
	APIKey             string `json:"api_key" binding:"required"`
	MispLicenseKey     string `json:"misp_license_key" binding:"required"`
	IncludeCertificate bool   `json:"include_certificate"`
}

// Resolve validates the credential triple against the local entitlement
// records and returns the effective policy. Validation short-circuits at the
// first failing rule; either the full response is produced or a single
// entitlement error is returned. Read-only.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*PolicyResponse, error) {
	span := trace.SpanFromContext(ctx)

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
		zap.String("partner_id", req.PartnerID),
	)

	mapping, err := s.mappings.FindOne(ctx, &PartnerMapping{
		PartnerID: req.PartnerID,
		APIKeyID:  req.APIKey,
	})
	if err != nil {
		zapLog.Error("failed to look up partner mapping", zap.Error(err))
		return nil, err
	}

	license, err := s.licenses.FindOne(ctx, &MispLicenseData{LicenseKey: req.MispLicenseKey})
	if err != nil {
		zapLog.Error("failed to look up misp license", zap.Error(err))
		return nil, err
	}

	if mapping == nil || mapping.IsDeleted {
		return nil, ErrPartnerNotRegistered
	}

	partner, err := s.partners.FindOne(ctx, &PartnerData{PartnerID: mapping.PartnerID})
	if err != nil {
		zapLog.Error("failed to look up partner", zap.Error(err))
		return nil, err
	}
	if partner == nil || partner.IsDeleted {
		return nil, ErrPartnerNotRegistered
	}
	if partner.PartnerStatus != StatusActive {
		return nil, ErrPartnerDeactivated
	}

	policy, err := s.policies.FindOne(ctx, &PolicyData{PolicyID: mapping.PolicyID})
	if err != nil {
		zapLog.Error("failed to look up policy", zap.Error(err))
		return nil, err
	}
	if policy == nil || policy.IsDeleted {
		return nil, ErrInvalidPolicyID
	}
	if policy.PolicyStatus != StatusActive {
		return nil, ErrPartnerPolicyNotActive
	}

	now := s.now()
	if !within(now, policy.PolicyCommenceOn, policy.PolicyExpiresOn) {
		return nil, ErrPartnerPolicyNotActive
	}

	apiKey, err := s.apiKeys.FindOne(ctx, &APIKeyData{APIKeyID: mapping.APIKeyID})
	if err != nil {
		zapLog.Error("failed to look up api key", zap.Error(err))
		return nil, err
	}
	if apiKey == nil || apiKey.IsDeleted {
		return nil, ErrPartnerNotRegistered
	}
	if apiKey.APIKeyStatus != StatusActive {
		return nil, ErrPartnerDeactivated
	}
	if !within(now, apiKey.APIKeyCommenceOn, apiKey.APIKeyExpiresOn) {
		return nil, ErrPartnerNotRegistered
	}

	if license == nil {
		return nil, ErrInvalidLicenseKey
	}
	if license.IsDeleted {
		return nil, ErrInvalidLicenseKey
	}
	if license.MispStatus != StatusActive {
		return nil, ErrLicenseKeySuspended
	}
	// A not-yet-commenced license maps to the generic invalid-key code,
	// unlike expiry which has its own code. Kept for compatibility with the
	// published error contract.
	if now.Before(license.MispCommenceOn) {
		return nil, ErrInvalidLicenseKey
	}
	if !now.Before(license.MispExpiresOn) {
		return nil, ErrLicenseKeyExpired
	}

	resp := &PolicyResponse{
		PolicyID:          policy.PolicyID,
		PolicyName:        policy.PolicyName,
		Policy:            policy.Policy,
		PolicyDescription: policy.PolicyDescription,
		PolicyStatus:      policy.PolicyStatus == StatusActive,
		PartnerID:         partner.PartnerID,
		PartnerName:       partner.PartnerName,
		PolicyExpiresOn:   policy.PolicyExpiresOn,
		APIKeyExpiresOn:   apiKey.APIKeyExpiresOn,
		MispExpiresOn:     license.MispExpiresOn,
	}
	if req.IncludeCertificate {
		resp.CertificateData = partner.CertificateData
	}

	return resp, nil
}

// within reports whether now falls in [commence, expires); the commence bound
// is inclusive, the expiry bound exclusive.
func within(now, commence, expires time.Time) bool {
	return !now.Before(commence) && now.Before(expires)
}
