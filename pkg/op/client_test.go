package op_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zitadel/schema"

	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
	"github.com/zitadel/ciba/pkg/op/mock"
)

// assertErrorType asserts err is an *oidc.Error of the same type as want.
func assertErrorType(t *testing.T, err error, want *oidc.Error) {
	t.Helper()
	var got *oidc.Error
	if !assert.True(t, errors.As(err, &got), "want %s, got %v", want.ErrorType, err) {
		return
	}
	assert.Equal(t, want.ErrorType, got.ErrorType, got.Description)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, io.ErrNoProgress
}

func TestParseAuthenticatedRequest(t *testing.T) {
	type basicAuth struct {
		username string
		password string
	}
	tests := []struct {
		name       string
		body       io.Reader
		basicAuth  *basicAuth
		wantID     string
		wantSecret string
		wantErr    *oidc.Error
	}{
		{
			name:    "parse error",
			body:    errReader{},
			wantErr: oidc.ErrInvalidRequest(),
		},
		{
			name: "form credentials",
			body: strings.NewReader(url.Values{
				"client_id":     {"foo"},
				"client_secret": {"bar"},
			}.Encode()),
			wantID:     "foo",
			wantSecret: "bar",
		},
		{
			name: "basic auth overrides form",
			body: strings.NewReader(url.Values{
				"client_id": {"foo"},
			}.Encode()),
			basicAuth:  &basicAuth{"my%3Aclient", "s%20ecret"},
			wantID:     "my:client",
			wantSecret: "s ecret",
		},
		{
			name:      "username unescape err",
			body:      strings.NewReader(""),
			basicAuth: &basicAuth{"%", "bar"},
			wantErr:   oidc.ErrInvalidClient(),
		},
		{
			name:      "password unescape err",
			body:      strings.NewReader(""),
			basicAuth: &basicAuth{"foo", "%"},
			wantErr:   oidc.ErrInvalidClient(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/oauth/token", tt.body)
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.basicAuth != nil {
				r.SetBasicAuth(tt.basicAuth.username, tt.basicAuth.password)
			}
			decoder := schema.NewDecoder()
			decoder.IgnoreUnknownKeys(true)

			req := new(oidc.BackchannelTokenRequest)
			err := op.ParseAuthenticatedRequest(r, decoder, req)
			if tt.wantErr != nil {
				assertErrorType(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, req.ClientID)
			assert.Equal(t, tt.wantSecret, req.ClientSecret)
		})
	}
}

func TestAuthenticateClient(t *testing.T) {
	errWrong := errors.New("wrong secret")
	client := mock.NewClientExpectAny(t, mock.ClientConfig{Mode: oidc.DeliveryModePoll})

	tests := []struct {
		name     string
		id       string
		secret   string
		registry func() op.ClientRegistry
		wantErr  bool
	}{
		{
			name:     "no client id",
			registry: func() op.ClientRegistry { return mock.NewMockClientRegistry(gomock.NewController(t)) },
			wantErr:  true,
		},
		{
			name: "unknown client",
			id:   "foo",
			registry: func() op.ClientRegistry {
				r := mock.NewMockClientRegistry(gomock.NewController(t))
				r.EXPECT().GetClientByClientID(gomock.Any(), "foo").Return(nil, errors.New("not found"))
				return r
			},
			wantErr: true,
		},
		{
			name:   "wrong secret",
			id:     "foo",
			secret: "wrong",
			registry: func() op.ClientRegistry {
				r := mock.NewMockClientRegistry(gomock.NewController(t))
				r.EXPECT().GetClientByClientID(gomock.Any(), "foo").Return(client, nil)
				r.EXPECT().AuthorizeClientIDSecret(gomock.Any(), "foo", "wrong").Return(errWrong)
				return r
			},
			wantErr: true,
		},
		{
			name:   "ok",
			id:     "foo",
			secret: "bar",
			registry: func() op.ClientRegistry {
				r := mock.NewMockClientRegistry(gomock.NewController(t))
				r.EXPECT().GetClientByClientID(gomock.Any(), "foo").Return(client, nil)
				r.EXPECT().AuthorizeClientIDSecret(gomock.Any(), "foo", "bar").Return(nil)
				return r
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := op.AuthenticateClient(context.Background(), tt.id, tt.secret, tt.registry())
			if tt.wantErr {
				assertErrorType(t, err, oidc.ErrInvalidClient())
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, client, got)
		})
	}
}

func TestValidateGrantType(t *testing.T) {
	ciba := mock.NewClientExpectAny(t, mock.ClientConfig{Mode: oidc.DeliveryModePoll})
	code := mock.NewClientExpectAny(t, mock.ClientConfig{GrantTypes: []oidc.GrantType{oidc.GrantTypeCode}})

	assert.True(t, op.ValidateGrantType(ciba, oidc.GrantTypeCIBA))
	assert.False(t, op.ValidateGrantType(code, oidc.GrantTypeCIBA))
	assert.False(t, op.ValidateGrantType(nil, oidc.GrantTypeCIBA))
}
