package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleOAuthService verifies Google ID tokens against our OAuth client ID.
type GoogleOAuthService struct {
	clientID string
}

func NewGoogleOAuthService(clientID string) *GoogleOAuthService {
	return &GoogleOAuthService{clientID: clientID}
}

// GoogleUserInfo represents user information from Google
type GoogleUserInfo struct {
	GoogleID  string
	Email     string
	Name      string
	AvatarURL string
}

// VerifyIDToken verifies Google ID token and returns user information
func (s *GoogleOAuthService) VerifyIDToken(ctx context.Context, idToken string) (*GoogleUserInfo, error) {
	payload, err := idtoken.Validate(ctx, idToken, s.clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify Google ID token: %w", err)
	}
	return userInfoFromClaims(payload.Claims)
}

func userInfoFromClaims(claims map[string]interface{}) (*GoogleUserInfo, error) {
	googleID, ok := claims["sub"].(string)
	if !ok || googleID == "" {
		return nil, fmt.Errorf("missing sub claim in token")
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("missing email claim in token")
	}
	name, _ := claims["name"].(string)
	avatarURL, _ := claims["picture"].(string)

	emailVerified, _ := claims["email_verified"].(bool)
	if !emailVerified {
		return nil, fmt.Errorf("email not verified by Google")
	}

	return &GoogleUserInfo{
		GoogleID:  googleID,
		Email:     email,
		Name:      name,
		AvatarURL: avatarURL,
	}, nil
}
