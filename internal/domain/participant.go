package domain

// Participant is a member of a scheduling group. The timezone is carried for
// presentation by the chat gateway; all scheduling math happens in UTC.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone,omitempty"`
}

// GatewayIdentity is the authenticated caller extracted from a chat-gateway
// bearer token
type GatewayIdentity struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name,omitempty"`
}
