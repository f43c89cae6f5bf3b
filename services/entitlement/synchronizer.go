package entitlement

import (
	"context"

	"idauth-entitlement/pkg/identity"

	"go.uber.org/zap"
)

// systemIdentity is the audit actor recorded when neither an authenticated
// caller nor an event publisher is known.
const systemIdentity = "IDA"

// attribution picks the audit actor for a write: the authenticated caller if
// one exists, else the event's declared publisher, else the platform identity.
func attribution(actor, publisher string) string {
	if actor != "" {
		return actor
	}
	if publisher != "" {
		return publisher
	}
	return systemIdentity
}

func (s *Service) attributionFor(ctx context.Context, m *EventModel) string {
	return attribution(identity.Actor(ctx), m.Publisher)
}

// HandleAPIKeyApproved synchronizes the partner, API key and policy records
// published with an approval event, then records the mapping linking them.
// The mapping is written last since it depends on the other three. Re-delivery
// is safe: records are upserted and an existing mapping is left untouched.
func (s *Service) HandleAPIKeyApproved(ctx context.Context, m *EventModel) error {
	var partner PartnerData
	if err := m.section(sectionPartnerData, &partner); err != nil {
		return err
	}
	var apiKey APIKeyData
	if err := m.section(sectionAPIKeyData, &apiKey); err != nil {
		return err
	}
	var policy PolicyData
	if err := m.section(sectionPolicyData, &policy); err != nil {
		return err
	}

	// All three identifiers are checked up front so a bad payload is rejected
	// before the first record is written.
	if partner.PartnerID == "" {
		return newPayloadError(sectionPartnerData, errMissingRecordID)
	}
	if apiKey.APIKeyID == "" {
		return newPayloadError(sectionAPIKeyData, errMissingRecordID)
	}
	if policy.PolicyID == "" {
		return newPayloadError(sectionPolicyData, errMissingRecordID)
	}

	by := s.attributionFor(ctx, m)
	now := s.now()

	if err := s.upsertPartner(ctx, &partner, by); err != nil {
		return err
	}
	if err := s.upsertAPIKey(ctx, &apiKey, by); err != nil {
		return err
	}
	if err := s.upsertPolicy(ctx, &policy, by); err != nil {
		return err
	}

	existing, err := s.mappings.FindOne(ctx, &PartnerMapping{
		PartnerID: partner.PartnerID,
		APIKeyID:  apiKey.APIKeyID,
	})
	if err != nil {
		return err
	}
	if existing != nil {
		zap.L().Info("partner mapping already recorded",
			zap.String("partner_id", partner.PartnerID),
			zap.String("api_key_id", apiKey.APIKeyID),
		)
		return nil
	}

	mapping := PartnerMapping{
		PartnerID: partner.PartnerID,
		APIKeyID:  apiKey.APIKeyID,
		PolicyID:  policy.PolicyID,
		CreatedBy: by,
		CreatedAt: now,
	}
	return s.mappings.Create(ctx, &mapping)
}

// HandleAPIKeyUpdated upserts the API key record carried by an update event.
func (s *Service) HandleAPIKeyUpdated(ctx context.Context, m *EventModel) error {
	var apiKey APIKeyData
	if err := m.section(sectionAPIKeyData, &apiKey); err != nil {
		return err
	}
	return s.upsertAPIKey(ctx, &apiKey, s.attributionFor(ctx, m))
}

// HandlePartnerUpdated upserts the partner record carried by an update event.
func (s *Service) HandlePartnerUpdated(ctx context.Context, m *EventModel) error {
	var partner PartnerData
	if err := m.section(sectionPartnerData, &partner); err != nil {
		return err
	}
	return s.upsertPartner(ctx, &partner, s.attributionFor(ctx, m))
}

// HandlePolicyUpdated upserts the policy record carried by an update event.
func (s *Service) HandlePolicyUpdated(ctx context.Context, m *EventModel) error {
	var policy PolicyData
	if err := m.section(sectionPolicyData, &policy); err != nil {
		return err
	}
	return s.upsertPolicy(ctx, &policy, s.attributionFor(ctx, m))
}

// HandleMispLicenseUpdated upserts the MISP license record carried by an
// update event.
func (s *Service) HandleMispLicenseUpdated(ctx context.Context, m *EventModel) error {
	var license MispLicenseData
	if err := m.section(sectionMispLicenseData, &license); err != nil {
		return err
	}
	return s.upsertLicense(ctx, &license, s.attributionFor(ctx, m))
}

func (s *Service) upsertPartner(ctx context.Context, event *PartnerData, by string) error {
	if event.PartnerID == "" {
		return newPayloadError(sectionPartnerData, errMissingRecordID)
	}

	existing, err := s.partners.FindOne(ctx, &PartnerData{PartnerID: event.PartnerID})
	if err != nil {
		return err
	}
	if existing != nil {
		existing.PartnerName = event.PartnerName
		existing.CertificateData = event.CertificateData
		existing.PartnerStatus = event.PartnerStatus
		existing.UpdatedBy = by
		existing.UpdatedAt = s.now()
		return s.partners.Save(ctx, existing)
	}

	event.CreatedBy = by
	event.CreatedAt = s.now()
	return s.partners.Save(ctx, event)
}

func (s *Service) upsertAPIKey(ctx context.Context, event *APIKeyData, by string) error {
	if event.APIKeyID == "" {
		return newPayloadError(sectionAPIKeyData, errMissingRecordID)
	}

	existing, err := s.apiKeys.FindOne(ctx, &APIKeyData{APIKeyID: event.APIKeyID})
	if err != nil {
		return err
	}
	if existing != nil {
		existing.APIKeyCommenceOn = event.APIKeyCommenceOn
		existing.APIKeyExpiresOn = event.APIKeyExpiresOn
		existing.APIKeyStatus = event.APIKeyStatus
		existing.UpdatedBy = by
		existing.UpdatedAt = s.now()
		return s.apiKeys.Save(ctx, existing)
	}

	event.CreatedBy = by
	event.CreatedAt = s.now()
	return s.apiKeys.Save(ctx, event)
}

func (s *Service) upsertPolicy(ctx context.Context, event *PolicyData, by string) error {
	if event.PolicyID == "" {
		return newPayloadError(sectionPolicyData, errMissingRecordID)
	}

	existing, err := s.policies.FindOne(ctx, &PolicyData{PolicyID: event.PolicyID})
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Policy = event.Policy
		existing.PolicyName = event.PolicyName
		existing.PolicyStatus = event.PolicyStatus
		existing.PolicyDescription = event.PolicyDescription
		existing.PolicyCommenceOn = event.PolicyCommenceOn
		existing.PolicyExpiresOn = event.PolicyExpiresOn
		existing.UpdatedBy = by
		existing.UpdatedAt = s.now()
		return s.policies.Save(ctx, existing)
	}

	event.CreatedBy = by
	event.CreatedAt = s.now()
	return s.policies.Save(ctx, event)
}

func (s *Service) upsertLicense(ctx context.Context, event *MispLicenseData, by string) error {
	if event.MispID == "" {
		return newPayloadError(sectionMispLicenseData, errMissingRecordID)
	}

	existing, err := s.licenses.FindOne(ctx, &MispLicenseData{MispID: event.MispID})
	if err != nil {
		return err
	}
	if existing != nil {
		existing.LicenseKey = event.LicenseKey
		existing.MispCommenceOn = event.MispCommenceOn
		existing.MispExpiresOn = event.MispExpiresOn
		existing.MispStatus = event.MispStatus
		existing.UpdatedBy = by
		existing.UpdatedAt = s.now()
		return s.licenses.Save(ctx, existing)
	}

	event.CreatedBy = by
	event.CreatedAt = s.now()
	return s.licenses.Save(ctx, event)
}
