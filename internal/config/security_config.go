// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic    SecurityLevel = iota // No authentication
	SecurityApplicant                      // Any valid token for the guild
	SecurityModerator                      // Token carrying the moderator role
)

// EndpointSecurityConfig maps HTTP route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	"healthz": SecurityPublic,
	"metrics": SecurityPublic,

	// Applicant side
	"open-application":   SecurityApplicant,
	"submit-application": SecurityApplicant,

	// Review queue and history
	"list-open-applications": SecurityModerator,
	"get-application":        SecurityModerator,
	"list-review-actions":    SecurityModerator,
	"can-reapply":            SecurityModerator,

	// Claims and decisions
	"claim":        SecurityModerator,
	"unclaim":      SecurityModerator,
	"approve":      SecurityModerator,
	"reject":       SecurityModerator,
	"kick":         SecurityModerator,
	"request-info": SecurityModerator,
	"unblock":      SecurityModerator,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityModerator
}
