package httpclient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileURL(t *testing.T) {
	t.Parallel()

	type args struct {
		template string
		params   map[string]any
		query    *Query
	}

	query := func(kv ...string) *Query {
		q := &Query{}
		for i := 0; i+1 < len(kv); i += 2 {
			q.Add(kv[i], kv[i+1])
		}
		return q
	}

	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "given param and query, then substitutes and appends query",
			args: args{
				template: "/api/:id",
				params:   map[string]any{"id": "789"},
				query:    query("search", "hello"),
			},
			want: "/api/789?search=hello",
		},
		{
			name: "given missing param, then drops segment with its slash",
			args: args{template: "/api/:id"},
			want: "/api",
		},
		{
			name: "given two of three params, then only the missing segment is dropped",
			args: args{
				template: "/orgs/:org/users/:id/posts/:postId",
				params:   map[string]any{"org": "acme", "postId": 9},
			},
			want: "/orgs/acme/users/posts/9",
		},
		{
			name: "given absolute URL, then port colon is not a placeholder",
			args: args{
				template: "http://localhost:8080/users/:id",
				params:   map[string]any{"id": 7},
			},
			want: "http://localhost:8080/users/7",
		},
		{
			name: "given integral float param and query, then rendered without exponent",
			args: args{
				template: "/items/:id",
				params:   map[string]any{"id": 1000000.0},
				query:    query("n", stringify(1e6)),
			},
			want: "/items/1000000?n=1000000",
		},
		{
			name: "given zero, then segment is dropped",
			args: args{template: "/users/:id", params: map[string]any{"id": 0}},
			want: "/users",
		},
		{
			name: "given empty string, then segment is dropped",
			args: args{template: "/users/:id", params: map[string]any{"id": ""}},
			want: "/users",
		},
		{
			name: "given false, then segment is dropped",
			args: args{template: "/users/:id", params: map[string]any{"id": false}},
			want: "/users",
		},
		{
			name: "given nil, then segment is dropped",
			args: args{template: "/users/:id", params: map[string]any{"id": nil}},
			want: "/users",
		},
		{
			name: "given NaN, then segment is dropped",
			args: args{template: "/users/:id", params: map[string]any{"id": math.NaN()}},
			want: "/users",
		},
		{
			name: "given true, then renders true",
			args: args{template: "/flags/:on", params: map[string]any{"on": true}},
			want: "/flags/true",
		},
		{
			name: "given float, then renders shortest form",
			args: args{template: "/v/:n", params: map[string]any{"n": 3.5}},
			want: "/v/3.5",
		},
		{
			name: "given value with slash, then value is not escaped",
			args: args{template: "/files/:path", params: map[string]any{"path": "a/b"}},
			want: "/files/a/b",
		},
		{
			name: "given underscore name, then matches whole name",
			args: args{template: "/users/:user_id/x", params: map[string]any{"user_id": "u1"}},
			want: "/users/u1/x",
		},
		{
			name: "given colon not after slash, then left untouched",
			args: args{template: "/time/12:30", params: map[string]any{"30": "x"}},
			want: "/time/12:30",
		},
		{
			name: "given empty query, then no question mark",
			args: args{template: "/users", query: &Query{}},
			want: "/users",
		},
		{
			name: "given query with spaces and reserved characters, then form encodes",
			args: args{template: "/search", query: query("q", "a b&c", "tag", "x=y")},
			want: "/search?q=a+b%26c&tag=x%3Dy",
		},
		{
			name: "given repeated query key, then keeps every value in order",
			args: args{template: "/items", query: query("id", "1", "sort", "asc", "id", "2")},
			want: "/items?id=1&sort=asc&id=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, compileURL(tt.args.template, tt.args.params, tt.args.query))
		})
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	var nilPtr *int
	one := 1

	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{name: "given nil, then false", value: nil, want: false},
		{name: "given empty string, then false", value: "", want: false},
		{name: "given string, then true", value: "0", want: true},
		{name: "given false, then false", value: false, want: false},
		{name: "given true, then true", value: true, want: true},
		{name: "given int zero, then false", value: 0, want: false},
		{name: "given negative int, then true", value: -1, want: true},
		{name: "given uint zero, then false", value: uint8(0), want: false},
		{name: "given float zero, then false", value: 0.0, want: false},
		{name: "given NaN, then false", value: math.NaN(), want: false},
		{name: "given infinity, then true", value: math.Inf(1), want: true},
		{name: "given nil pointer, then false", value: nilPtr, want: false},
		{name: "given pointer, then true", value: &one, want: true},
		{name: "given empty slice, then true", value: []string{}, want: true},
		{name: "given struct, then true", value: struct{}{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, truthy(tt.value))
		})
	}
}

func TestStringify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "given nil, then null", value: nil, want: "null"},
		{name: "given string, then verbatim", value: "a b", want: "a b"},
		{name: "given int, then decimal", value: 42, want: "42"},
		{name: "given bool, then true", value: true, want: "true"},
		{name: "given float, then shortest form", value: 0.25, want: "0.25"},
		{name: "given integral float, then no exponent", value: 1000000.0, want: "1000000"},
		{name: "given large float below 1e21, then plain digits", value: 1.5e20, want: "150000000000000000000"},
		{name: "given float at 1e21, then exponent form", value: 1e21, want: "1e+21"},
		{name: "given tiny float, then unpadded exponent", value: 1.5e-7, want: "1.5e-7"},
		{name: "given 1e-6, then plain decimal", value: 1e-6, want: "0.000001"},
		{name: "given negative float, then signed", value: -2.5, want: "-2.5"},
		{name: "given float32, then shortest float32 form", value: float32(0.1), want: "0.1"},
		{name: "given NaN, then NaN", value: math.NaN(), want: "NaN"},
		{name: "given negative infinity, then -Infinity", value: math.Inf(-1), want: "-Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, stringify(tt.value))
		})
	}
}
