package crm

import "fmt"

// Filter is a Bitrix list filter. Keys may carry operator prefixes ("%NAME", "!ID").
type Filter map[string]interface{}

// APIError is an error envelope returned by the Bitrix REST API.
type APIError struct {
	Method      string
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s: %s", e.Method, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Method, e.Code, e.Description)
}

// CallRegistration registers an external call against a CRM entity.
type CallRegistration struct {
	UserPhoneInner string `json:"USER_PHONE_INNER"`
	UserID         int    `json:"USER_ID"`
	PhoneNumber    string `json:"PHONE_NUMBER"`
	CallStartDate  string `json:"CALL_START_DATE"`
	CRMCreate      bool   `json:"CRM_CREATE"`
	CRMSource      string `json:"CRM_SOURCE"`
	CRMEntityType  string `json:"CRM_ENTITY_TYPE"`
	CRMEntityID    int    `json:"CRM_ENTITY_ID"`
	Show           bool   `json:"SHOW"`
	Type           int    `json:"TYPE"`
	LineNumber     string `json:"LINE_NUMBER"`
}

// Incoming call type for telephony.externalcall.register.
const CallTypeIncoming = 2

type CallFinish struct {
	CallID     string `json:"CALL_ID"`
	UserID     int    `json:"USER_ID"`
	Duration   int    `json:"DURATION"`
	StatusCode int    `json:"STATUS_CODE"`
}

type RecordingAttachment struct {
	CallID      string `json:"CALL_ID"`
	Filename    string `json:"FILENAME"`
	FileContent string `json:"FILE_CONTENT"`
}
