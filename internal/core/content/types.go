package content

import (
	"fmt"
	"time"
)

// Kind identifies what a content record holds.
type Kind string

const (
	// KindProfile is a DAG-CBOR encoded user profile.
	KindProfile Kind = "profile"
	// KindDocument is the raw bytes of an uploaded document.
	KindDocument Kind = "document"
)

const (
	// AcceptedDocumentType is the only media type accepted for uploaded documents.
	AcceptedDocumentType = "application/pdf"

	// MaxDocumentSize caps uploaded documents at 10 MiB.
	MaxDocumentSize = 10 << 20

	// BirthdayLayout is the wire format for Profile.Birthday.
	BirthdayLayout = "2006-01-02"
)

// Profile is the user-supplied personal data stored alongside the DID.
type Profile struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	PassportNo string `json:"passportNo"`
	Birthday   string `json:"birthday"`
	DID        string `json:"did,omitempty"`
}

// Validate checks that every required field is present and the birthday is a
// past calendar date.
func (p Profile) Validate(now time.Time) error {
	switch {
	case p.FirstName == "":
		return &InvalidProfileError{Field: "firstName", Reason: "is required"}
	case p.LastName == "":
		return &InvalidProfileError{Field: "lastName", Reason: "is required"}
	case p.PassportNo == "":
		return &InvalidProfileError{Field: "passportNo", Reason: "is required"}
	case p.Birthday == "":
		return &InvalidProfileError{Field: "birthday", Reason: "is required"}
	}

	birthday, err := time.Parse(BirthdayLayout, p.Birthday)
	if err != nil {
		return &InvalidProfileError{Field: "birthday", Reason: fmt.Sprintf("must be formatted as %s", BirthdayLayout)}
	}
	if birthday.After(now) {
		return &InvalidProfileError{Field: "birthday", Reason: "cannot be in the future"}
	}

	return nil
}

// fields returns the profile as a flat map. The DAG-CBOR encoder sorts map
// keys, which keeps the encoded bytes independent of struct field order.
func (p Profile) fields() map[string]interface{} {
	m := map[string]interface{}{
		"firstName":  p.FirstName,
		"lastName":   p.LastName,
		"passportNo": p.PassportNo,
		"birthday":   p.Birthday,
	}
	if p.DID != "" {
		m["did"] = p.DID
	}
	return m
}

func profileFromFields(m map[string]interface{}) Profile {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return Profile{
		FirstName:  str("firstName"),
		LastName:   str("lastName"),
		PassportNo: str("passportNo"),
		Birthday:   str("birthday"),
		DID:        str("did"),
	}
}

// Document is an uploaded file as received from the form.
type Document struct {
	Name      string
	MediaType string
	Data      []byte
}

// Record is the content address of a stored object.
type Record struct {
	CID  string `json:"cid"`
	Kind Kind   `json:"kind"`
	Size int    `json:"size"`
}
