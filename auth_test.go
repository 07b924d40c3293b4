package bankadmin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/arhyth/bankadmin"
	"github.com/arhyth/bankadmin/mocks"
)

func newTestAuthenticator(tt *testing.T, ttl time.Duration) (*mocks.MockRepository, *bankadmin.Authenticator) {
	ctrl := gomock.NewController(tt)
	repo := mocks.NewMockRepository(ctrl)
	nooplog := zerolog.Nop()
	auth, err := bankadmin.NewAuthenticator(repo, testSecret, ttl, &nooplog)
	require.Nil(tt, err)
	return repo, auth
}

func TestNewAuthenticator(t *testing.T) {
	as := assert.New(t)
	nooplog := zerolog.Nop()
	_, err := bankadmin.NewAuthenticator(nil, "", time.Hour, &nooplog)
	as.NotNil(err)
}

func TestEnsureAdmin(t *testing.T) {
	t.Run("creates the bootstrap admin with a hashed password", func(tt *testing.T) {
		as := assert.New(tt)
		repo, auth := newTestAuthenticator(tt, time.Hour)
		repo.EXPECT().CountAdmins(gomock.Any()).Return(int64(0), nil)
		repo.EXPECT().
			CreateAdmin(gomock.Any(), gomock.AssignableToTypeOf(bankadmin.Admin{})).
			DoAndReturn(func(_ context.Context, a bankadmin.Admin) error {
				as.Equal("admin", a.Username)
				as.NotEqual("admin123", a.PasswordHash)
				as.Nil(bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("admin123")))
				return nil
			})

		as.Nil(auth.EnsureAdmin(context.Background(), "admin", "admin123"))
	})

	t.Run("leaves existing admins alone", func(tt *testing.T) {
		as := assert.New(tt)
		repo, auth := newTestAuthenticator(tt, time.Hour)
		repo.EXPECT().CountAdmins(gomock.Any()).Return(int64(1), nil)

		as.Nil(auth.EnsureAdmin(context.Background(), "admin", "admin123"))
	})

	t.Run("fails without bootstrap credentials", func(tt *testing.T) {
		as := assert.New(tt)
		repo, auth := newTestAuthenticator(tt, time.Hour)
		repo.EXPECT().CountAdmins(gomock.Any()).Return(int64(0), nil)

		as.NotNil(auth.EnsureAdmin(context.Background(), "admin", ""))
	})
}

func TestLogin(t *testing.T) {
	t.Run("unknown admin is unauthorized", func(tt *testing.T) {
		as := assert.New(tt)
		repo, auth := newTestAuthenticator(tt, time.Hour)
		repo.EXPECT().GetAdmin(gomock.Any(), "ghost").Return(nil, bankadmin.ErrNotFound{})

		sess, err := auth.Login(context.Background(), "ghost", "pw")
		as.Nil(sess)
		as.ErrorIs(err, bankadmin.ErrUnauthorized)
	})

	t.Run("issued token verifies", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		repo, auth := newTestAuthenticator(tt, time.Hour)
		hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
		reqrd.Nil(err)
		repo.EXPECT().GetAdmin(gomock.Any(), "admin").Return(&bankadmin.Admin{Username: "admin", PasswordHash: string(hash)}, nil)

		sess, err := auth.Login(context.Background(), "admin", "pw")
		reqrd.Nil(err)
		as.WithinDuration(time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

		claims, err := auth.Verify(sess.Token)
		reqrd.Nil(err)
		as.Equal("admin", claims.Username)
		as.NotEmpty(claims.ID)
	})
}

func TestVerify(t *testing.T) {
	t.Run("rejects expired tokens", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		_, auth := newTestAuthenticator(tt, time.Nanosecond)
		sess, err := auth.IssueToken("admin")
		reqrd.Nil(err)

		_, err = auth.Verify(sess.Token)
		as.NotNil(err)
	})

	t.Run("rejects tokens signed with another secret", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		nooplog := zerolog.Nop()
		other, err := bankadmin.NewAuthenticator(nil, "another-secret", time.Hour, &nooplog)
		reqrd.Nil(err)
		sess, err := other.IssueToken("admin")
		reqrd.Nil(err)

		_, auth := newTestAuthenticator(tt, time.Hour)
		_, err = auth.Verify(sess.Token)
		as.NotNil(err)
	})
}

func TestRequireSession(t *testing.T) {
	as := assert.New(t)
	reqrd := require.New(t)
	_, auth := newTestAuthenticator(t, time.Hour)
	sess, err := auth.IssueToken("operator")
	reqrd.Nil(err)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = bankadmin.AdminFromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	w := httptest.NewRecorder()
	auth.RequireSession(next).ServeHTTP(w, req)

	as.Equal(http.StatusOK, w.Code)
	as.Equal("operator", seen)
}
