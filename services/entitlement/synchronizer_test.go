package entitlement

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"idauth-entitlement/pkg/identity"
)

func newEvent(t *testing.T, publisher string, sections map[string]any) *EventModel {
	t.Helper()

	data := make(map[string]json.RawMessage, len(sections))
	for name, doc := range sections {
		raw, err := json.Marshal(doc)
		require.NoError(t, err)
		data[name] = raw
	}

	return &EventModel{
		Publisher:   publisher,
		PublishedOn: testNow,
		Event: Event{
			ID:            "evt-1",
			TransactionID: "txn-1",
			Data:          data,
		},
	}
}

func approvalEvent(t *testing.T, publisher string) *EventModel {
	f := validFixture()
	return newEvent(t, publisher, map[string]any{
		sectionPartnerData: f.partner,
		sectionAPIKeyData:  f.apiKey,
		sectionPolicyData:  f.policy,
	})
}

func TestHandleAPIKeyApprovedCreatesRecordsAndMapping(t *testing.T) {
	svc, db := newTestService(t)

	err := svc.HandleAPIKeyApproved(context.Background(), approvalEvent(t, "partner-manager"))
	require.NoError(t, err)

	var partner PartnerData
	require.NoError(t, db.First(&partner, "partner_id = ?", "partner-1").Error)
	require.Equal(t, "partner-manager", partner.CreatedBy)
	require.Equal(t, testNow.Unix(), partner.CreatedAt.Unix())

	var apiKey APIKeyData
	require.NoError(t, db.First(&apiKey, "api_key_id = ?", "apikey-1").Error)
	require.Equal(t, "partner-manager", apiKey.CreatedBy)

	var policy PolicyData
	require.NoError(t, db.First(&policy, "policy_id = ?", "policy-1").Error)
	require.Equal(t, "partner-manager", policy.CreatedBy)

	var mapping PartnerMapping
	require.NoError(t, db.First(&mapping, "partner_id = ? AND api_key_id = ?", "partner-1", "apikey-1").Error)
	require.Equal(t, "policy-1", mapping.PolicyID)
	require.Equal(t, "partner-manager", mapping.CreatedBy)
}

func TestHandleAPIKeyApprovedRedeliveryIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)

	require.NoError(t, svc.HandleAPIKeyApproved(context.Background(), approvalEvent(t, "partner-manager")))
	require.NoError(t, svc.HandleAPIKeyApproved(context.Background(), approvalEvent(t, "partner-manager")))

	var count int64
	require.NoError(t, db.Model(&PartnerMapping{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestHandleAPIKeyApprovedMissingSection(t *testing.T) {
	svc, db := newTestService(t)

	f := validFixture()
	event := newEvent(t, "partner-manager", map[string]any{
		sectionPartnerData: f.partner,
		sectionPolicyData:  f.policy,
	})

	err := svc.HandleAPIKeyApproved(context.Background(), event)
	requireCode(t, err, CodePayloadDeserialization)

	// Deserialization fails before any persistence call runs.
	var count int64
	require.NoError(t, db.Model(&PartnerData{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestHandleAPIKeyUpdatedInsertsWhenMissing(t *testing.T) {
	svc, db := newTestService(t)

	f := validFixture()
	event := newEvent(t, "partner-manager", map[string]any{sectionAPIKeyData: f.apiKey})

	require.NoError(t, svc.HandleAPIKeyUpdated(context.Background(), event))

	var apiKey APIKeyData
	require.NoError(t, db.First(&apiKey, "api_key_id = ?", "apikey-1").Error)
	require.Equal(t, "partner-manager", apiKey.CreatedBy)
	require.Equal(t, testNow.Unix(), apiKey.CreatedAt.Unix())
	require.Empty(t, apiKey.UpdatedBy)
}

func TestHandleAPIKeyUpdatedMutatesExisting(t *testing.T) {
	svc, db := newTestService(t)

	seeded := APIKeyData{
		APIKeyID:         "apikey-1",
		APIKeyStatus:     StatusActive,
		APIKeyCommenceOn: testNow.Add(-48 * time.Hour),
		APIKeyExpiresOn:  testNow.Add(-24 * time.Hour),
		CreatedBy:        "original-creator",
		CreatedAt:        testNow.Add(-72 * time.Hour),
	}
	require.NoError(t, db.Create(&seeded).Error)

	updated := APIKeyData{
		APIKeyID:         "apikey-1",
		APIKeyStatus:     "REVOKED",
		APIKeyCommenceOn: testNow,
		APIKeyExpiresOn:  testNow.Add(24 * time.Hour),
	}
	event := newEvent(t, "partner-manager", map[string]any{sectionAPIKeyData: updated})

	require.NoError(t, svc.HandleAPIKeyUpdated(context.Background(), event))

	var apiKey APIKeyData
	require.NoError(t, db.First(&apiKey, "api_key_id = ?", "apikey-1").Error)
	require.Equal(t, "REVOKED", apiKey.APIKeyStatus)
	require.Equal(t, testNow.Unix(), apiKey.APIKeyCommenceOn.Unix())
	require.Equal(t, "partner-manager", apiKey.UpdatedBy)
	require.Equal(t, testNow.Unix(), apiKey.UpdatedAt.Unix())
	// Identity and creation audit are left untouched.
	require.Equal(t, "original-creator", apiKey.CreatedBy)
	require.Equal(t, testNow.Add(-72*time.Hour).Unix(), apiKey.CreatedAt.Unix())
}

func TestHandlePartnerUpdatedOverwritesMutableFields(t *testing.T) {
	svc, db := newTestService(t)

	f := validFixture()
	require.NoError(t, db.Create(&f.partner).Error)

	changed := f.partner
	changed.PartnerName = "Acme Renamed"
	changed.PartnerStatus = "SUSPENDED"
	changed.CertificateData = "-----BEGIN CERTIFICATE----- v2"
	event := newEvent(t, "partner-manager", map[string]any{sectionPartnerData: changed})

	require.NoError(t, svc.HandlePartnerUpdated(context.Background(), event))

	var partner PartnerData
	require.NoError(t, db.First(&partner, "partner_id = ?", "partner-1").Error)
	require.Equal(t, "Acme Renamed", partner.PartnerName)
	require.Equal(t, "SUSPENDED", partner.PartnerStatus)
	require.Equal(t, "-----BEGIN CERTIFICATE----- v2", partner.CertificateData)
	require.Equal(t, "partner-manager", partner.UpdatedBy)
}

func TestHandlePartnerUpdatedEmptyRecordID(t *testing.T) {
	svc, db := newTestService(t)

	f := validFixture()
	require.NoError(t, db.Create(&f.partner).Error)

	event := newEvent(t, "partner-manager", map[string]any{sectionPartnerData: PartnerData{}})

	err := svc.HandlePartnerUpdated(context.Background(), event)
	requireCode(t, err, CodePayloadDeserialization)

	// The seeded row must not be touched by a payload that names no record.
	var partner PartnerData
	require.NoError(t, db.First(&partner, "partner_id = ?", "partner-1").Error)
	require.Equal(t, "Acme Relying Party", partner.PartnerName)
	require.Equal(t, StatusActive, partner.PartnerStatus)
	require.Empty(t, partner.UpdatedBy)
}

func TestHandleMispLicenseUpdatedEmptyRecordID(t *testing.T) {
	svc, db := newTestService(t)

	f := validFixture()
	require.NoError(t, db.Create(&f.license).Error)

	event := newEvent(t, "partner-manager", map[string]any{sectionMispLicenseData: MispLicenseData{}})

	err := svc.HandleMispLicenseUpdated(context.Background(), event)
	requireCode(t, err, CodePayloadDeserialization)

	var license MispLicenseData
	require.NoError(t, db.First(&license, "misp_id = ?", "misp-1").Error)
	require.Equal(t, "license-key-1", license.LicenseKey)
	require.Empty(t, license.UpdatedBy)
}

func TestHandleAPIKeyApprovedEmptyRecordID(t *testing.T) {
	svc, db := newTestService(t)

	f := validFixture()
	event := newEvent(t, "partner-manager", map[string]any{
		sectionPartnerData: f.partner,
		sectionAPIKeyData:  APIKeyData{},
		sectionPolicyData:  f.policy,
	})

	err := svc.HandleAPIKeyApproved(context.Background(), event)
	requireCode(t, err, CodePayloadDeserialization)

	// Rejected before the first upsert, so not even the valid sections land.
	var count int64
	require.NoError(t, db.Model(&PartnerData{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestHandlePolicyUpdatedMalformedSection(t *testing.T) {
	svc, _ := newTestService(t)

	event := newEvent(t, "partner-manager", map[string]any{
		sectionPolicyData: "not-a-policy-document",
	})

	err := svc.HandlePolicyUpdated(context.Background(), event)
	requireCode(t, err, CodePayloadDeserialization)
}

func TestHandleMispLicenseUpdatedUpserts(t *testing.T) {
	svc, db := newTestService(t)

	f := validFixture()
	event := newEvent(t, "partner-manager", map[string]any{sectionMispLicenseData: f.license})
	require.NoError(t, svc.HandleMispLicenseUpdated(context.Background(), event))

	changed := f.license
	changed.MispStatus = "SUSPENDED"
	changed.MispExpiresOn = testNow.Add(48 * time.Hour)
	event = newEvent(t, "partner-manager", map[string]any{sectionMispLicenseData: changed})
	require.NoError(t, svc.HandleMispLicenseUpdated(context.Background(), event))

	var license MispLicenseData
	require.NoError(t, db.First(&license, "misp_id = ?", "misp-1").Error)
	require.Equal(t, "SUSPENDED", license.MispStatus)
	require.Equal(t, changed.MispExpiresOn.Unix(), license.MispExpiresOn.Unix())
	require.Equal(t, "partner-manager", license.UpdatedBy)
}

func TestAttributionFallbackChain(t *testing.T) {
	require.Equal(t, "session-user", attribution("session-user", "publisher"))
	require.Equal(t, "publisher", attribution("", "publisher"))
	require.Equal(t, systemIdentity, attribution("", ""))
}

func TestAttributionPrefersContextActor(t *testing.T) {
	svc, db := newTestService(t)

	f := validFixture()
	event := newEvent(t, "partner-manager", map[string]any{sectionPartnerData: f.partner})

	ctx := identity.WithActor(context.Background(), "ops-admin")
	require.NoError(t, svc.HandlePartnerUpdated(ctx, event))

	var partner PartnerData
	require.NoError(t, db.First(&partner, "partner_id = ?", "partner-1").Error)
	require.Equal(t, "ops-admin", partner.CreatedBy)
}

func TestAttributionFallsBackToSystemIdentity(t *testing.T) {
	svc, db := newTestService(t)

	f := validFixture()
	event := newEvent(t, "", map[string]any{sectionPartnerData: f.partner})

	require.NoError(t, svc.HandlePartnerUpdated(context.Background(), event))

	var partner PartnerData
	require.NoError(t, db.First(&partner, "partner_id = ?", "partner-1").Error)
	require.Equal(t, systemIdentity, partner.CreatedBy)
}
