package entitlement

import (
	"time"

	"gorm.io/datatypes"
)

// StatusActive is the only status value that permits use of a record.
const StatusActive = "ACTIVE"

type PartnerData struct {
	PartnerID       string    `gorm:"column:partner_id;primaryKey" json:"partnerId"`
	PartnerName     string    `gorm:"column:partner_name" json:"partnerName"`
	PartnerStatus   string    `gorm:"column:partner_status" json:"partnerStatus"`
	CertificateData string    `gorm:"column:certificate_data" json:"certificateData"`
	IsDeleted       bool      `gorm:"column:is_deleted" json:"isDeleted"`
	CreatedBy       string    `gorm:"column:created_by" json:"-"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime:false;autoUpdateTime:false" json:"-"`
	UpdatedBy       string    `gorm:"column:updated_by" json:"-"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"-"`
}

func (PartnerData) TableName() string { return "partner_data" }

type APIKeyData struct {
	APIKeyID         string    `gorm:"column:api_key_id;primaryKey" json:"apiKeyId"`
	APIKeyStatus     string    `gorm:"column:api_key_status" json:"apiKeyStatus"`
	APIKeyCommenceOn time.Time `gorm:"column:api_key_commence_on" json:"apiKeyCommenceOn"`
	APIKeyExpiresOn  time.Time `gorm:"column:api_key_expires_on" json:"apiKeyExpiresOn"`
	IsDeleted        bool      `gorm:"column:is_deleted" json:"isDeleted"`
	CreatedBy        string    `gorm:"column:created_by" json:"-"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime:false;autoUpdateTime:false" json:"-"`
	UpdatedBy        string    `gorm:"column:updated_by" json:"-"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"-"`
}

func (APIKeyData) TableName() string { return "api_key_data" }

type PolicyData struct {
	PolicyID          string         `gorm:"column:policy_id;primaryKey" json:"policyId"`
	PolicyName        string         `gorm:"column:policy_name" json:"policyName"`
	PolicyDescription string         `gorm:"column:policy_description" json:"policyDescription"`
	Policy            datatypes.JSON `gorm:"column:policy" json:"policy"`
	PolicyStatus      string         `gorm:"column:policy_status" json:"policyStatus"`
	PolicyCommenceOn  time.Time      `gorm:"column:policy_commence_on" json:"policyCommenceOn"`
	PolicyExpiresOn   time.Time      `gorm:"column:policy_expires_on" json:"policyExpiresOn"`
	IsDeleted         bool           `gorm:"column:is_deleted" json:"isDeleted"`
	CreatedBy         string         `gorm:"column:created_by" json:"-"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime:false;autoUpdateTime:false" json:"-"`
	UpdatedBy         string         `gorm:"column:updated_by" json:"-"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime:false" json:"-"`
}

func (PolicyData) TableName() string { return "policy_data" }

type MispLicenseData struct {
	MispID         string    `gorm:"column:misp_id;primaryKey" json:"mispId"`
	LicenseKey     string    `gorm:"column:license_key;index" json:"licenseKey"`
	MispStatus     string    `gorm:"column:misp_status" json:"mispStatus"`
	MispCommenceOn time.Time `gorm:"column:misp_commence_on" json:"mispCommenceOn"`
	MispExpiresOn  time.Time `gorm:"column:misp_expires_on" json:"mispExpiresOn"`
	IsDeleted      bool      `gorm:"column:is_deleted" json:"isDeleted"`
	CreatedBy      string    `gorm:"column:created_by" json:"-"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime:false;autoUpdateTime:false" json:"-"`
	UpdatedBy      string    `gorm:"column:updated_by" json:"-"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"-"`
}

func (MispLicenseData) TableName() string { return "misp_license_data" }

// PartnerMapping is the join record asserting that a given partner, using a
// given API key, is entitled to a given policy. It holds foreign keys only;
// the linked records are looked up independently.
type PartnerMapping struct {
	PartnerID string    `gorm:"column:partner_id;primaryKey" json:"partnerId"`
	APIKeyID  string    `gorm:"column:api_key_id;primaryKey" json:"apiKeyId"`
	PolicyID  string    `gorm:"column:policy_id" json:"policyId"`
	IsDeleted bool      `gorm:"column:is_deleted" json:"isDeleted"`
	CreatedBy string    `gorm:"column:created_by" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false;autoUpdateTime:false" json:"-"`
	UpdatedBy string    `gorm:"column:updated_by" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"-"`
}

func (PartnerMapping) TableName() string { return "partner_mapping" }

// PolicyResponse is the payload returned to callers once the full validation
// chain has passed. CertificateData is only populated when the caller asked
// for it.
type PolicyResponse struct {
	PolicyID          string         `json:"policyId"`
	PolicyName        string         `json:"policyName"`
	Policy            datatypes.JSON `json:"policy"`
	PolicyDescription string         `json:"policyDescription"`
	PolicyStatus      bool           `json:"policyStatus"`
	PartnerID         string         `json:"partnerId"`
	PartnerName       string         `json:"partnerName"`
	CertificateData   string         `json:"certificateData,omitempty"`
	PolicyExpiresOn   time.Time      `json:"policyExpiresOn"`
	APIKeyExpiresOn   time.Time      `json:"apiKeyExpiresOn"`
	MispExpiresOn     time.Time      `json:"mispExpiresOn"`
}
