// Package auth 提供JWT令牌管理器的单元测试
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/mailagent/internal/database"
	apperrors "github.com/weiwangfds/mailagent/internal/errors"
)

func testUser() *database.User {
	return &database.User{
		UserID: "11111111-2222-3333-4444-555555555555",
		Email:  "tester@gmail.com",
	}
}

// TestTokenGenerateAndValidate 测试令牌签发与校验
func TestTokenGenerateAndValidate(t *testing.T) {
	manager := NewTokenManager("test-secret", 24)

	token, expiresAt, err := manager.Generate(testUser())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now().Add(23*time.Hour)))

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", claims.UserID)
	assert.Equal(t, "tester@gmail.com", claims.Email)
	assert.Equal(t, "mailagent", claims.Issuer)
}

// TestTokenValidateErrors 测试无效令牌的错误分类
func TestTokenValidateErrors(t *testing.T) {
	manager := NewTokenManager("test-secret", 24)

	t.Run("篡改的令牌", func(t *testing.T) {
		token, _, err := manager.Generate(testUser())
		require.NoError(t, err)

		_, err = manager.Validate(token + "x")
		require.Error(t, err)
		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrAuthTokenInvalid, appErr.Code)
	})

	t.Run("错误密钥签发的令牌", func(t *testing.T) {
		other := NewTokenManager("other-secret", 24)
		token, _, err := other.Generate(testUser())
		require.NoError(t, err)

		_, err = manager.Validate(token)
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrAuthTokenInvalid, appErr.Code)
	})

	t.Run("非法格式", func(t *testing.T) {
		_, err := manager.Validate("not-a-jwt")
		require.Error(t, err)
	})
}

// TestOAuthStateRoundTrip 测试OAuth state参数的签发与校验
func TestOAuthStateRoundTrip(t *testing.T) {
	svc := &authService{stateSecret: []byte("state-secret")}

	state, err := svc.signState()
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	require.NoError(t, svc.verifyState(state))

	t.Run("空state返回校验失败", func(t *testing.T) {
		err := svc.verifyState("")
		require.Error(t, err)
		appErr, _ := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrAuthStateMismatch, appErr.Code)
	})

	t.Run("其他密钥签发的state不通过", func(t *testing.T) {
		other := &authService{stateSecret: []byte("another")}
		state, err := other.signState()
		require.NoError(t, err)

		require.Error(t, svc.verifyState(state))
	})
}
