package canonical

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channels-core/internal/common/errors"
)

func TestBuildString_FixedVector(t *testing.T) {
	params := url.Values{
		"name":           {"query"},
		"auth_key":       {"AAAA"},
		"auth_timestamp": {"1234"},
		"auth_version":   {"1.0"},
	}

	got, err := BuildString("post", "/apps/1/events", params)
	require.NoError(t, err)
	assert.Equal(t, "POST\n/apps/1/events\nauth_key=AAAA&auth_timestamp=1234&auth_version=1.0&name=query", got)
}

func TestParamString(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
		want   string
	}{
		{"empty", url.Values{}, ""},
		{"nil", nil, ""},
		{"sorted", url.Values{"query": {"params"}, "go": {"here"}}, "go=here&query=params"},
		{"lower-cased", url.Values{"Query": {"params"}, "GO": {"here"}}, "go=here&query=params"},
		{"signature excluded", url.Values{"a": {"1"}, "auth_signature": {"abc"}}, "a=1"},
		{"upper-case signature excluded", url.Values{"a": {"1"}, "AUTH_SIGNATURE": {"abc"}}, "a=1"},
		{"values verbatim", url.Values{"info": {"user_count,subscription_count"}}, "info=user_count,subscription_count"},
		{"byte-wise order", url.Values{"b": {"1"}, "B_": {"2"}, "a_b": {"3"}, "a": {"4"}}, "a=4&a_b=3&b=1&b_=2"},
		{"empty value", url.Values{"x": {""}}, "x="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParamString(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParamString_OrderIndependent(t *testing.T) {
	a := url.Values{}
	a.Set("z", "1")
	a.Set("m", "2")
	a.Set("a", "3")

	b := url.Values{}
	b.Set("a", "3")
	b.Set("z", "1")
	b.Set("m", "2")

	sa, err := ParamString(a)
	require.NoError(t, err)
	sb, err := ParamString(b)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestParamString_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
	}{
		{"multi value", url.Values{"channels": {"a", "b"}}},
		{"no value", url.Values{"channels": {}}},
		{"case collision", url.Values{"Foo": {"1"}, "foo": {"2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParamString(tt.params)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
		})
	}
}

func TestBuildString_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"bad method", "DELETE", "/apps/1/events"},
		{"empty method", "", "/apps/1/events"},
		{"empty path", "GET", ""},
		{"relative path", "GET", "apps/1"},
		{"query in path", "GET", "/apps/1?x=y"},
		{"newline in path", "GET", "/apps/1\nGET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildString(tt.method, tt.path, nil)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
		})
	}
}

func TestJSON(t *testing.T) {
	type info struct {
		Name string `json:"name"`
	}
	type member struct {
		UserInfo info   `json:"user_info"`
		UserID   string `json:"user_id"`
	}

	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{
			name:  "struct fields sorted",
			input: member{UserID: "10", UserInfo: info{Name: "Mr. Pusher"}},
			want:  `{"user_id":"10","user_info":{"name":"Mr. Pusher"}}`,
		},
		{
			name:  "nested maps sorted",
			input: map[string]interface{}{"uid": 123, "info": map[string]interface{}{"z": 1, "a": 2}},
			want:  `{"info":{"a":2,"z":1},"uid":123}`,
		},
		{
			name:  "html not escaped",
			input: map[string]string{"name": "<b>&</b>"},
			want:  `{"name":"<b>&</b>"}`,
		},
		{
			name:  "raw message recanonicalized",
			input: json.RawMessage(`{ "b": 1.50, "a": [3, 2] }`),
			want:  `{"a":[3,2],"b":1.50}`,
		},
		{
			name:  "string is quoted",
			input: "foobar",
			want:  `"foobar"`,
		},
		{
			name:  "json looking string is still quoted",
			input: `{"b":1}`,
			want:  `"{\"b\":1}"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSON_Errors(t *testing.T) {
	_, err := JSON(make(chan int))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = JSON([]byte(`{"a":`))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = JSON([]byte(`{} {}`))
	require.Error(t, err)
}

func TestJSON_Deterministic(t *testing.T) {
	data := map[string]interface{}{"k3": "c", "k1": "a", "k2": []int{1, 2}}
	first, err := JSON(data)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := JSON(data)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
