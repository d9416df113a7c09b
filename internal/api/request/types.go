package request

// CreateUserRequest is the request body for creating a user
type CreateUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	Name             string   `json:"name"`
	PairingPolicy    string   `json:"pairing_policy,omitempty"`
	SafeIsTargetable bool     `json:"safe_is_targetable,omitempty"`
	AdminEmails      []string `json:"admin_emails,omitempty"`
}

// InviteRequest is the request body for inviting a partner
type InviteRequest struct {
	ToPlayerID string `json:"to_player_id"`
}

// RespondRequest is the request body for accepting or rejecting an invitation
type RespondRequest struct {
	InviterID string `json:"inviter_id"`
}

// ReseedRequest is the request body for regenerating assignments
type ReseedRequest struct {
	Policy string `json:"policy,omitempty"`
}
