package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Platform string

const (
	PlatformBayut    Platform = "bayut"
	PlatformDubizzle Platform = "dubizzle"
)

// Platforms is the fixed processing order of lead sources.
var Platforms = []Platform{PlatformBayut, PlatformDubizzle}

// Title returns the display form used in deal titles ("Bayut").
func (p Platform) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

type LeadType string

const (
	LeadTypeEmail    LeadType = "email"
	LeadTypeCall     LeadType = "call"
	LeadTypeWhatsApp LeadType = "whatsapp"
)

// LeadTypes is the fixed processing order within a platform.
var LeadTypes = []LeadType{LeadTypeEmail, LeadTypeCall, LeadTypeWhatsApp}

// QueryValue is the upstream "type" query parameter for this lead type.
func (t LeadType) QueryValue() string {
	switch t {
	case LeadTypeEmail:
		return "leads"
	case LeadTypeCall:
		return "call_logs"
	case LeadTypeWhatsApp:
		return "whatsapp_leads"
	default:
		return string(t)
	}
}

// Channel is the human label used in titles ("Email", "WhatsApp", "Call").
func (t LeadType) Channel() string {
	switch t {
	case LeadTypeEmail:
		return "Email"
	case LeadTypeCall:
		return "Call"
	case LeadTypeWhatsApp:
		return "WhatsApp"
	default:
		return string(t)
	}
}

// FlexString decodes a JSON string, number, bool or null into a string.
// The listing platforms are not consistent about numeric ids and phone numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = FlexString(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("flex string: %w", err)
		}
		*f = FlexString(n.String())
	}
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Lead is the union of the email, whatsapp and call-log shapes served by the
// platforms. Everything except LeadID is optional.
type Lead struct {
	LeadID FlexString `json:"lead_id"`

	// email leads
	ClientName        string     `json:"client_name"`
	ClientEmail       string     `json:"client_email"`
	ClientPhone       FlexString `json:"client_phone"`
	Message           string     `json:"message"`
	PropertyReference string     `json:"property_reference"`
	PropertyID        FlexString `json:"property_id"`
	CurrentType       string     `json:"current_type"`
	DateTime          string     `json:"date_time"`

	// whatsapp leads
	Detail           *LeadDetail `json:"detail"`
	ListingReference string      `json:"listing_reference"`
	ListingID        FlexString  `json:"listing_id"`

	// call logs
	CallerNumber          FlexString `json:"caller_number"`
	ReceiverNumber        FlexString `json:"receiver_number"`
	CallStatus            FlexString `json:"call_status"`
	CallTotalDuration     FlexString `json:"call_total_duration"`
	CallConnectedDuration FlexString `json:"call_connected_duration"`
	CallRecordingURL      string     `json:"call_recordingurl"`
	Date                  string     `json:"date"`
	Time                  string     `json:"time"`
}

type LeadDetail struct {
	ActorName string     `json:"actor_name"`
	Cell      FlexString `json:"cell"`
	Message   string     `json:"message"`
}

// UnmarshalJSON accepts an object, null, or the empty array the portal sends for an
// empty detail.
func (d *LeadDetail) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = LeadDetail{}
		return nil
	}
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if len(items) > 0 {
			return fmt.Errorf("detail: expected object, got array of %d", len(items))
		}
		*d = LeadDetail{}
		return nil
	}

	type plain LeadDetail
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = LeadDetail(p)
	return nil
}

// ID returns the idempotency key of the lead.
func (l *Lead) ID() string {
	return strings.TrimSpace(string(l.LeadID))
}

// ActorName returns the whatsapp sender name, or "" when there is no detail.
func (l *Lead) ActorName() string {
	if l.Detail == nil {
		return ""
	}
	return l.Detail.ActorName
}

// CallStart joins the call log date and time columns.
func (l *Lead) CallStart() string {
	return strings.TrimSpace(l.Date + " " + l.Time)
}
