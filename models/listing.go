package models

// Listing is the subset of a CRM listing record used to route a lead to an agent.
type Listing struct {
	Reference  string     `json:"ufCrm37ReferenceNumber"`
	AgentEmail string     `json:"ufCrm37AgentEmail"`
	OwnerName  string     `json:"ufCrm37ListingOwner"`
	OwnerID    FlexString `json:"ufCrm37OwnerId"`
}
