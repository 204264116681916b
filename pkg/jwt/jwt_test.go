package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	svc := NewService("secret", "delegate-dashboard", "api")

	valid, err := svc.GenerateToken("user-1", RoleDelegate, []string{"Fixture2024"}, time.Hour)
	require.NoError(t, err)
	expired, err := svc.GenerateToken("user-1", RoleDelegate, nil, -time.Minute)
	require.NoError(t, err)
	otherSecret, err := NewService("other", "delegate-dashboard", "api").GenerateToken("user-1", RoleViewer, nil, time.Hour)
	require.NoError(t, err)
	otherAudience, err := NewService("secret", "delegate-dashboard", "web").GenerateToken("user-1", RoleViewer, nil, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid", token: valid},
		{name: "expired", token: expired, wantErr: ErrExpiredToken},
		{name: "wrong secret", token: otherSecret, wantErr: ErrInvalidSignature},
		{name: "wrong audience", token: otherAudience, wantErr: ErrInvalidToken},
		{name: "garbage", token: "not.a.token", wantErr: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.Subject)
			assert.True(t, claims.CanWrite())
			assert.True(t, claims.CanAccess("Fixture2024"))
			assert.False(t, claims.CanAccess("Other2024"))
		})
	}
}

func TestClaimsAccess(t *testing.T) {
	assert.True(t, (&Claims{Role: string(RoleAdmin)}).CanAccess("Any2024"))
	assert.True(t, (&Claims{Role: string(RoleViewer), Competitions: []string{"*"}}).CanAccess("Any2024"))
	assert.False(t, (&Claims{Role: string(RoleViewer), Competitions: []string{"*"}}).CanWrite())
}
