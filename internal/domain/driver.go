package domain

import "time"

// DocumentType identifies one of the two independently verified driver documents.
type DocumentType string

const (
	DocumentLicense   DocumentType = "license"
	DocumentInsurance DocumentType = "insurance"
)

// ParseDocumentType validates a document type received from a caller.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case DocumentLicense, DocumentInsurance:
		return DocumentType(s), nil
	}
	return "", &ValidationError{Field: "type", Reason: "must be license or insurance"}
}

// License holds the driving licence details of a driver.
type License struct {
	Number      string
	IssuedBy    string
	ExpiryDate  time.Time
	DocumentRef string
	Verified    bool
}

// Insurance holds the insurance policy details of a driver.
type Insurance struct {
	Provider     string
	PolicyNumber string
	ExpiryDate   time.Time
	DocumentRef  string
	Verified     bool
}

// Driver is the person who will drive the rented car. A driver may be
// attached to several bookings over time.
type Driver struct {
	ID        string
	UserID    string
	License   License
	Insurance Insurance
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullyVerified reports whether both documents are verified.
// This is the payment gate; there is no stored combined flag.
func (d *Driver) FullyVerified() bool {
	return d.License.Verified && d.Insurance.Verified
}

// Verified reports the verification state of a single document.
func (d *Driver) Verified(doc DocumentType) bool {
	switch doc {
	case DocumentLicense:
		return d.License.Verified
	case DocumentInsurance:
		return d.Insurance.Verified
	}
	return false
}

// VerificationRecord carries the document data an administrator confirms.
// License uses Number and IssuedBy, insurance uses Provider and PolicyNumber.
type VerificationRecord struct {
	Number       string
	IssuedBy     string
	Provider     string
	PolicyNumber string
	ExpiryDate   time.Time
	DocumentRef  string
}
