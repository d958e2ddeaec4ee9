package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the payload of access tokens minted by the identity provider.
type JWTClaims struct {
	UserID         string   `json:"user_id"`
	Role           UserRole `json:"role"`
	Email          string   `json:"email,omitempty"`
	OrganizationID *string  `json:"organization_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the capability passed to services.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Role: c.Role, OrganizationID: c.OrganizationID}
}
