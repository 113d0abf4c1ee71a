package httpclient

import (
	"bytes"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeBody(t *testing.T) {
	t.Parallel()

	type user struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	form := NewForm().Append("a", "1")

	tests := []struct {
		name    string
		body    any
		want    any
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given nil, then stays absent",
			body:    nil,
			want:    nil,
			wantErr: assert.NoError,
		},
		{
			name:    "given struct, then JSON string",
			body:    user{Name: "Ada", Age: 36},
			want:    `{"name":"Ada","age":36}`,
			wantErr: assert.NoError,
		},
		{
			name:    "given string, then JSON encoded string",
			body:    "hello",
			want:    `"hello"`,
			wantErr: assert.NoError,
		},
		{
			name:    "given slice, then JSON array",
			body:    []int{1, 2, 3},
			want:    `[1,2,3]`,
			wantErr: assert.NoError,
		},
		{
			name:    "given form, then passes through unchanged",
			body:    form,
			want:    form,
			wantErr: assert.NoError,
		},
		{
			name:    "given unencodable value, then returns error",
			body:    make(chan int),
			want:    nil,
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := serializeBody(tt.body)
			tt.wantErr(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSerializedBody_DecodesToOriginal(t *testing.T) {
	t.Parallel()

	type address struct {
		City string `json:"city"`
		Zip  string `json:"zip,omitempty"`
	}
	type order struct {
		ID      int64    `json:"id"`
		Items   []string `json:"items"`
		Total   float64  `json:"total"`
		Paid    bool     `json:"paid"`
		Address *address `json:"address"`
	}

	tests := []struct {
		name  string
		value any
	}{
		{
			name:  "given struct, then decodes to equal struct",
			value: order{ID: 9, Items: []string{"a", "b"}, Total: 12.5, Paid: true, Address: &address{City: "Oslo"}},
		},
		{
			name:  "given map, then decodes to equal map",
			value: map[string]any{"name": "Ada", "tags": []any{"x", true, nil}, "score": 1.5},
		},
		{name: "given slice, then decodes to equal slice", value: []int{3, 1, 2}},
		{name: "given string, then decodes to equal string", value: "quote \" and unicode é"},
		{name: "given integer, then decodes to equal integer", value: 1000000},
		{name: "given float, then decodes to equal float", value: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rb := New().Post("/items").SetBody(tt.value)
			serialized, err := rb.SerializedBody()
			require.NoError(t, err)

			encoded, ok := serialized.(string)
			require.True(t, ok, "JSON bodies serialize to a string")

			decoded := reflect.New(reflect.TypeOf(tt.value))
			require.NoError(t, json.Unmarshal([]byte(encoded), decoded.Interface()))
			assert.Equal(t, tt.value, decoded.Elem().Interface())
		})
	}
}

func TestSerializeBody_FormIsSameValue(t *testing.T) {
	t.Parallel()

	form := NewForm().Append("a", "1")
	got, err := serializeBody(form)
	require.NoError(t, err)
	assert.Same(t, form, got)
}

func TestBodyKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
		want string
	}{
		{
			name: "given nil, then empty",
			body: nil,
			want: "",
		},
		{
			name: "given string, then verbatim",
			body: `{"name":"Ada"}`,
			want: `{"name":"Ada"}`,
		},
		{
			name: "given form, then key=value pairs in insertion order",
			body: NewForm().Append("b", "2").Append("a", "1"),
			want: "b=2a=1",
		},
		{
			name: "given form with file, then file name stands for content",
			body: NewForm().Append("title", "q4").AppendFile("doc", "report.pdf", strings.NewReader("%PDF")),
			want: "title=q4doc=report.pdf",
		},
		{
			name: "given bytes, then empty",
			body: []byte("raw"),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, bodyKey(tt.body))
		})
	}
}

func TestBodyReader(t *testing.T) {
	t.Parallel()

	t.Run("given nil, then no reader", func(t *testing.T) {
		t.Parallel()

		r, raw, contentType, err := bodyReader(nil)
		require.NoError(t, err)
		assert.Nil(t, r)
		assert.Nil(t, raw)
		assert.Empty(t, contentType)
	})

	t.Run("given string, then reads string and keeps content type", func(t *testing.T) {
		t.Parallel()

		r, raw, contentType, err := bodyReader(`{"a":1}`)
		require.NoError(t, err)
		data, _ := io.ReadAll(r)
		assert.Equal(t, `{"a":1}`, string(data))
		assert.Equal(t, `{"a":1}`, string(raw))
		assert.Empty(t, contentType)
	})

	t.Run("given bytes, then reads bytes", func(t *testing.T) {
		t.Parallel()

		r, raw, _, err := bodyReader([]byte("abc"))
		require.NoError(t, err)
		data, _ := io.ReadAll(r)
		assert.Equal(t, "abc", string(data))
		assert.Equal(t, "abc", string(raw))
	})

	t.Run("given reader, then passes it through", func(t *testing.T) {
		t.Parallel()

		src := bytes.NewBufferString("stream")
		r, raw, _, err := bodyReader(src)
		require.NoError(t, err)
		assert.Same(t, src, r)
		assert.Nil(t, raw)
	})

	t.Run("given form, then multipart content type", func(t *testing.T) {
		t.Parallel()

		r, raw, contentType, err := bodyReader(NewForm().Append("a", "1"))
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.Contains(t, string(raw), `name="a"`)
		assert.True(t, strings.HasPrefix(contentType, "multipart/form-data; boundary="))
	})

	t.Run("given unsupported type, then returns error", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := bodyReader(42)
		assert.ErrorContains(t, err, "unsupported draft body type int")
	})
}
