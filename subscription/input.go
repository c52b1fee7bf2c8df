package subscription

// Input carries the fields a caller supplies when creating a subscription.
type Input struct {
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	EventTypes  []string `json:"event_types"`
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	URL         *string  `json:"url,omitempty"`
	Description *string  `json:"description,omitempty"`
	EventTypes  []string `json:"event_types,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}
