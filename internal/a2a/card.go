package a2a

// CapabilityInput describes one parameter of a capability.
type CapabilityInput struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Capability is one advertised operation on the agent card.
type Capability struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	InputSchema  []CapabilityInput `json:"input_schema"`
	OutputSchema map[string]string `json:"output_schema"`
}

// AgentCard is the discovery document other agents fetch before delegating
// credential requests here.
type AgentCard struct {
	AgentID            string       `json:"agent_id"`
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	Version            string       `json:"version"`
	Capabilities       []Capability `json:"capabilities"`
	CommunicationModes []string     `json:"communication_modes"`
	Authentication     string       `json:"authentication"`
}

func durationInput() CapabilityInput {
	return CapabilityInput{
		Name:        "duration_minutes",
		Type:        "integer",
		Description: "Token duration in minutes (1-15, default: 5)",
		Required:    false,
	}
}

var agentCard = AgentCard{
	AgentID: "keyrelay-credential-broker",
	Name:    "Ephemeral Credential Agent",
	Description: "Provides just-in-time ephemeral credentials from the vault. " +
		"Supports multiple resource types (database, API, SSH, generic) with " +
		"configurable TTL and automatic audit logging.",
	Version: "1.0.0",
	Capabilities: []Capability{
		{
			Name:        "request_database_credentials",
			Description: "Request temporary database credentials with configurable TTL",
			InputSchema: []CapabilityInput{
				{Name: "database_name", Type: "string", Description: "Name of the database resource in the vault", Required: true},
				durationInput(),
			},
			OutputSchema: map[string]string{
				"ephemeral_token":    "string (JWT)",
				"expires_in_seconds": "integer",
				"database":           "string",
				"issued_at":          "string (ISO 8601)",
			},
		},
		{
			Name:        "request_api_credentials",
			Description: "Request temporary API access tokens",
			InputSchema: []CapabilityInput{
				{Name: "api_name", Type: "string", Description: "Name of the API resource in the vault", Required: true},
				durationInput(),
			},
			OutputSchema: map[string]string{
				"ephemeral_token":    "string (JWT)",
				"expires_in_seconds": "integer",
				"api":                "string",
				"issued_at":          "string (ISO 8601)",
			},
		},
		{
			Name:        "request_ssh_credentials",
			Description: "Request temporary SSH credentials",
			InputSchema: []CapabilityInput{
				{Name: "ssh_resource_name", Type: "string", Description: "Name of the SSH resource in the vault", Required: true},
				durationInput(),
			},
			OutputSchema: map[string]string{
				"ephemeral_token":    "string (JWT)",
				"expires_in_seconds": "integer",
				"ssh_resource":       "string",
				"issued_at":          "string (ISO 8601)",
			},
		},
		{
			Name:        "request_generic_secret",
			Description: "Request any generic secret from the vault",
			InputSchema: []CapabilityInput{
				{Name: "secret_name", Type: "string", Description: "Name of the secret in the vault", Required: true},
				durationInput(),
			},
			OutputSchema: map[string]string{
				"ephemeral_token":    "string (JWT)",
				"expires_in_seconds": "integer",
				"secret":             "string",
				"issued_at":          "string (ISO 8601)",
			},
		},
	},
	CommunicationModes: []string{"text", "json"},
	Authentication:     "bearer_token",
}
