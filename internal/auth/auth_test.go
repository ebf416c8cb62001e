package auth

import (
	"context"
	"testing"
	"time"

	"consultbook/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer("secret", "consultbook", time.Hour)

	token, exp, err := iss.Issue(models.Actor{ID: "cust-1", Role: models.RoleCustomer})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	actor, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", actor.ID)
	assert.Equal(t, models.RoleCustomer, actor.Role)
}

func TestIssue_Rejects(t *testing.T) {
	iss := NewIssuer("secret", "consultbook", time.Hour)

	_, _, err := iss.Issue(models.Actor{Role: models.RoleStaff})
	assert.Error(t, err)
	_, _, err = iss.Issue(models.Actor{ID: "x", Role: "Guest"})
	assert.Error(t, err)
}

func TestVerify_Invalid(t *testing.T) {
	iss := NewIssuer("secret", "consultbook", time.Hour)
	token, _, err := iss.Issue(models.Actor{ID: "staff-1", Role: models.RoleStaff})
	require.NoError(t, err)

	t.Run("Empty", func(t *testing.T) {
		_, err := iss.Verify("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		_, err := NewIssuer("other", "consultbook", time.Hour).Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		_, err := NewIssuer("secret", "someone-else", time.Hour).Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		late := NewIssuer("secret", "consultbook", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		claims := Claims{
			Role: "Guest",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "g1",
				Issuer:    "consultbook",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = iss.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		claims := Claims{Role: "Admin", RegisteredClaims: jwt.RegisteredClaims{
			Subject: "a1", Issuer: "consultbook", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = iss.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = BearerToken("bearer xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	_, err = BearerToken("Basic abc")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = BearerToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), models.Actor{ID: "c1", Role: models.RoleConsultant})
	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "c1", actor.ID)
}
