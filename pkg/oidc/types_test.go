package oidc

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zitadel/schema"
)

func TestAudience_UnmarshalText(t *testing.T) {
	type args struct {
		text []byte
	}
	type res struct {
		audience Audience
	}
	tests := []struct {
		name    string
		args    args
		res     res
		wantErr bool
	}{
		{
			"invalid value",
			args{
				[]byte(`{"aud": {"a": }}}`),
			},
			res{},
			true,
		},
		{
			"single audience",
			args{
				[]byte(`{"aud": "single audience"}`),
			},
			res{
				[]string{"single audience"},
			},
			false,
		},
		{
			"multiple audience",
			args{
				[]byte(`{"aud": ["multiple", "audience"]}`),
			},
			res{
				[]string{"multiple", "audience"},
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := new(struct {
				Audience Audience `json:"aud"`
			})
			if err := json.Unmarshal(tt.args.text, &a); (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalText() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.ElementsMatch(t, a.Audience, tt.res.audience)
		})
	}
}

func TestAudience_Contains(t *testing.T) {
	a := Audience{"https://op.example.com", "other"}
	assert.True(t, a.Contains("https://op.example.com"))
	assert.False(t, a.Contains("https://op.example.com/"))
	assert.False(t, Audience(nil).Contains(""))
}

func TestSpaceDelimitedArray_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    SpaceDelimitedArray
		wantErr bool
	}{
		{
			name: "string",
			json: `"openid email"`,
			want: SpaceDelimitedArray{"openid", "email"},
		},
		{
			name: "array",
			json: `["openid", "email"]`,
			want: SpaceDelimitedArray{"openid", "email"},
		},
		{
			name: "null",
			json: `null`,
			want: nil,
		},
		{
			name:    "array with number",
			json:    `["openid", 1]`,
			wantErr: true,
		},
		{
			name:    "object",
			json:    `{}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SpaceDelimitedArray
			err := json.Unmarshal([]byte(tt.json), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpaceDelimitedArray_MarshalJSON(t *testing.T) {
	got, err := json.Marshal(SpaceDelimitedArray{"openid", "profile"})
	require.NoError(t, err)
	assert.Equal(t, `"openid profile"`, string(got))
}

func TestSpaceDelimitedArray_SchemaDecode(t *testing.T) {
	var req BackchannelAuthenticationRequest
	values := url.Values{
		"scope":            {"openid  email"},
		"login_hint":       {"alice"},
		"requested_expiry": {"120"},
	}
	require.NoError(t, schema.NewDecoder().Decode(&req, values))
	assert.Equal(t, SpaceDelimitedArray{"openid", "email"}, req.Scopes)
	assert.True(t, req.Scopes.Contains("openid"))
	assert.Equal(t, "alice", req.LoginHint)
	assert.Equal(t, 120, req.RequestedExpiry)
}

func TestSpaceDelimitatedArray_ValuerNotNil(t *testing.T) {
	inputs := [][]string{
		{"two", "elements"},
		{"one"},
		{ /*zero*/ },
	}
	for _, input := range inputs {
		t.Run(strconv.Itoa(len(input))+strings.Join(input, "_"), func(t *testing.T) {
			sda := SpaceDelimitedArray(input)
			dbValue, err := sda.Value()
			if !assert.NoError(t, err, "Value") {
				return
			}
			var reversed SpaceDelimitedArray
			err = reversed.Scan(dbValue)
			if assert.NoError(t, err, "Scan string") {
				assert.Equal(t, sda, reversed, "scan string")
			}
			reversed = nil
			dbValueString, ok := dbValue.(string)
			if assert.True(t, ok, "dbValue is string") {
				err = reversed.Scan([]byte(dbValueString))
				if assert.NoError(t, err, "Scan bytes") {
					assert.Equal(t, sda, reversed, "scan bytes")
				}
			}
		})
	}
}

func TestSpaceDelimitatedArray_ValuerNil(t *testing.T) {
	var reversed SpaceDelimitedArray
	err := reversed.Scan(nil)
	if assert.NoError(t, err, "Scan nil") {
		assert.Equal(t, SpaceDelimitedArray(nil), reversed, "scan nil")
	}
}

func TestTime_AsTime(t *testing.T) {
	tests := []struct {
		name string
		ts   Time
		want time.Time
	}{
		{
			name: "unset",
			ts:   0,
			want: time.Time{},
		},
		{
			name: "set",
			ts:   1,
			want: time.Unix(1, 0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ts.AsTime()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTime_FromTime(t *testing.T) {
	tests := []struct {
		name string
		tt   time.Time
		want Time
	}{
		{
			name: "zero",
			tt:   time.Time{},
			want: 0,
		},
		{
			name: "set",
			tt:   time.Unix(1, 0),
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromTime(tt.tt)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestedExpiry_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		json    string
		want    RequestedExpiry
		wantErr bool
	}{
		{json: `120`, want: 120},
		{json: `"120"`, want: 120},
		{json: `null`, want: 0},
		{json: `"soon"`, wantErr: true},
		{json: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			var got RequestedExpiry
			err := json.Unmarshal([]byte(tt.json), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackchannelRequestObject_Unmarshal(t *testing.T) {
	payload := `{
		"iss": "client1",
		"aud": "https://op.example.com",
		"exp": 1700000600,
		"nbf": 1700000000,
		"iat": 1700000000,
		"jti": "abc",
		"scope": "openid",
		"login_hint": "alice",
		"login_hint_token": null,
		"requested_expiry": "300"
	}`
	var obj BackchannelRequestObject
	require.NoError(t, json.Unmarshal([]byte(payload), &obj))
	assert.Equal(t, "client1", obj.Issuer)
	assert.Equal(t, Audience{"https://op.example.com"}, obj.Audience)
	assert.Equal(t, Time(1700000600), obj.Expiration)
	assert.Equal(t, SpaceDelimitedArray{"openid"}, obj.Scopes)
	assert.Equal(t, "alice", obj.LoginHint)
	assert.Empty(t, obj.LoginHintToken)
	assert.Equal(t, RequestedExpiry(300), obj.RequestedExpiry)
}
