package types

import "time"

// VerificationDocument is a file a user uploads to support their
// NGO or volunteer verification.
type VerificationDocument struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"userId"`
	DocumentType  string    `db:"document_type" json:"documentType"`
	FileName      string    `db:"file_name" json:"fileName"`
	FileSizeBytes int64     `db:"file_size_bytes" json:"fileSizeBytes"`
	MimeType      string    `db:"mime_type" json:"mimeType"`
	StorageKey    string    `db:"storage_key" json:"storageKey"`
	FileURL       string    `db:"file_url" json:"fileUrl"`
	Verified      bool      `db:"verified" json:"verified"`
	UploadedAt    time.Time `db:"uploaded_at" json:"uploadedAt"`
}

// Document type constants
const (
	DocTypeRegistrationCertificate = "registration_certificate"
	DocTypeTaxExemption            = "tax_exemption"
	DocTypeAddressProof            = "address_proof"
	DocTypeGovernmentID            = "government_id"
	DocTypeFoodSafetyLicense       = "food_safety_license"
	DocTypeOther                   = "other"
)

var DocumentTypes = []string{
	DocTypeRegistrationCertificate,
	DocTypeTaxExemption,
	DocTypeAddressProof,
	DocTypeGovernmentID,
	DocTypeFoodSafetyLicense,
	DocTypeOther,
}
