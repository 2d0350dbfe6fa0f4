package oidc

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Audience []string

func (a *Audience) UnmarshalJSON(text []byte) error {
	var i any
	err := json.Unmarshal(text, &i)
	if err != nil {
		return err
	}
	switch aud := i.(type) {
	case []any:
		*a = make([]string, len(aud))
		for i, audience := range aud {
			s, ok := audience.(string)
			if !ok {
				return fmt.Errorf("oidc: audience %v is not a string", audience)
			}
			(*a)[i] = s
		}
	case string:
		*a = []string{aud}
	case nil:
		*a = nil
	default:
		return fmt.Errorf("oidc: unexpected audience type %T", aud)
	}
	return nil
}

// Contains reports if the audience lists aud.
func (a Audience) Contains(aud string) bool {
	for _, v := range a {
		if v == aud {
			return true
		}
	}
	return false
}

// SpaceDelimitedArray is a list of strings transmitted as a single
// space separated string in forms and JWT claims.
type SpaceDelimitedArray []string

func (s SpaceDelimitedArray) String() string {
	return strings.Join(s, " ")
}

func (s SpaceDelimitedArray) Contains(value string) bool {
	for _, v := range s {
		if v == value {
			return true
		}
	}
	return false
}

func (s SpaceDelimitedArray) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SpaceDelimitedArray) UnmarshalText(text []byte) error {
	*s = strings.Fields(string(text))
	return nil
}

func (s SpaceDelimitedArray) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts both the space separated string
// and a JSON array of strings, as some clients send scopes as an array
// inside request objects.
func (s *SpaceDelimitedArray) UnmarshalJSON(data []byte) error {
	var i any
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	switch v := i.(type) {
	case nil:
		*s = nil
	case string:
		*s = strings.Fields(v)
	case []any:
		values := make(SpaceDelimitedArray, 0, len(v))
		for _, value := range v {
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("oidc: space delimited array: %v is not a string", value)
			}
			values = append(values, str)
		}
		*s = values
	default:
		return fmt.Errorf("oidc: space delimited array: unexpected type %T", v)
	}
	return nil
}

func (s *SpaceDelimitedArray) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case string:
		*s = strings.Fields(v)
		return nil
	case []byte:
		*s = strings.Fields(string(v))
		return nil
	default:
		return fmt.Errorf("oidc: cannot scan %T into SpaceDelimitedArray", src)
	}
}

func (s SpaceDelimitedArray) Value() (driver.Value, error) {
	return s.String(), nil
}

// Time is a JSON numeric date, seconds since the unix epoch.
type Time int64

func (ts Time) AsTime() time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(int64(ts), 0)
}

func FromTime(tt time.Time) Time {
	if tt.IsZero() {
		return 0
	}
	return Time(tt.Unix())
}

func NowTime() Time {
	return FromTime(time.Now())
}
