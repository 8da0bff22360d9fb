package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/teambuilder/internal/auth"
	"github.com/yakoovad/teambuilder/internal/directory"
)

func TestSessionService_StartSession(t *testing.T) {
	auth.TokenSecretKey = "test-secret"

	tests := []struct {
		name         string
		dir          *fakeDirectory
		email        string
		token        string
		errorCode    ErrorCode
		expectedType auth.TokenType
	}{
		{
			name:         "user session",
			dir:          &fakeDirectory{names: map[string]string{"a@x.com": "A"}},
			email:        "a@x.com",
			token:        "valid",
			expectedType: auth.TokenTypeUser,
		},
		{
			name:         "admin session",
			dir:          &fakeDirectory{names: map[string]string{"root@x.com": "Root"}},
			email:        "root@x.com",
			token:        "valid",
			expectedType: auth.TokenTypeAdmin,
		},
		{
			name:      "rejected token",
			dir:       &fakeDirectory{names: map[string]string{"a@x.com": "A"}},
			email:     "a@x.com",
			token:     "forged",
			errorCode: ErrorCodeInvalidAuth,
		},
		{
			name:      "unknown account",
			dir:       &fakeDirectory{names: map[string]string{}},
			email:     "a@x.com",
			token:     "valid",
			errorCode: ErrorCodeInvalidAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSessionService(tt.dir, time.Hour).WithAdmins([]string{"root@x.com"})

			got, err := service.StartSession(context.Background(), tt.email, tt.token)

			if tt.errorCode != "" {
				require.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Equal(t, KindUnauthorized, err.Kind())
				assert.Nil(t, got)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, tt.expectedType, got.Type)
			assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, time.Minute)

			claims, verr := auth.VerifyToken(got.Token)
			require.NoError(t, verr)
			assert.Equal(t, tt.email, claims.Email())
			assert.Equal(t, tt.expectedType, claims.Type)
		})
	}
}

func TestSessionService_DirectoryDown(t *testing.T) {
	mockDirectory := new(MockDirectory)
	mockDirectory.On("Validate", context.Background(), "a@x.com", "valid").Return(directory.ErrUnavailable)

	service := NewSessionService(mockDirectory, time.Hour)

	_, err := service.StartSession(context.Background(), "a@x.com", "valid")
	require.NotNil(t, err)
	assert.Equal(t, ErrorCodeUpstream, err.Code)
	assert.Equal(t, KindUpstreamUnavailable, err.Kind())

	mockDirectory.AssertExpectations(t)
}
