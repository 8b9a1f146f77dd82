package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the payload of access tokens issued by the identity provider.
// This service only validates tokens; it never issues them.
type JWTClaims struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
