package shareme

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

// identity claims carried in the platform session token.
// the token is signed by the identity service and verified server side,
// the client only needs the claims and parses unverified
type SessionToken struct {
	UserId   string
	Email    string
	Username string
}

func ParseSessionTokenUnverified(token string) (*SessionToken, error) {
	parser := gojwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		return nil, &AuthError{Message: "malformed session token"}
	}

	claims := parsed.Claims.(gojwt.MapClaims)

	sessionToken := &SessionToken{}

	if userId, ok := claims["Id"].(string); ok {
		sessionToken.UserId = userId
	}
	if email, ok := claims["Email"].(string); ok {
		sessionToken.Email = email
	}
	if username, ok := claims["Username"].(string); ok {
		sessionToken.Username = username
	}

	if sessionToken.UserId == "" {
		return nil, &AuthError{Message: "session token missing identity"}
	}

	return sessionToken, nil
}
