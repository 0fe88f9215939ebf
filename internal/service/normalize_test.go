package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTrimsAndDropsUnknownKeys(t *testing.T) {
	f := Normalize(map[string]any{
		"name":    "  Alice  ",
		"email":   " alice@example.com ",
		"address": "\t1 Main St\n",
		"age":     "30",
		"role":    "admin",
	})

	require.NotNil(t, f.Name)
	require.NotNil(t, f.Email)
	require.NotNil(t, f.Address)
	require.NotNil(t, f.Age)
	assert.Equal(t, "Alice", *f.Name)
	assert.Equal(t, "alice@example.com", *f.Email)
	assert.Equal(t, "1 Main St", *f.Address)
	assert.Equal(t, 30, *f.Age)
	assert.False(t, f.AgeInvalid)
}

func TestNormalizeSkipsMissingAndEmpty(t *testing.T) {
	f := Normalize(map[string]any{
		"name":  "",
		"email": nil,
		"age":   "",
	})

	assert.True(t, f.IsEmpty())
	assert.False(t, f.AgeInvalid)
}

func TestNormalizeKeepsWhitespaceOnlyAsEmpty(t *testing.T) {
	f := Normalize(map[string]any{"name": "   "})

	require.NotNil(t, f.Name)
	assert.Equal(t, "", *f.Name)
}

func TestNormalizeAge(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int
		invalid bool
	}{
		{name: "json number", in: float64(42), want: 42},
		{name: "fractional json number truncates", in: 30.9, want: 30},
		{name: "numeric string", in: "30", want: 30},
		{name: "padded numeric string", in: " 7 ", want: 7},
		{name: "zero", in: float64(0), want: 0},
		{name: "negative", in: "-3", want: -3},
		{name: "largest int32 string", in: "2147483647", want: 2147483647},
		{name: "string beyond int32", in: "3000000000", invalid: true},
		{name: "negative string beyond int32", in: "-3000000000", invalid: true},
		{name: "json number beyond int32", in: float64(3000000000), invalid: true},
		{name: "int beyond int32", in: int64(3000000000), invalid: true},
		{name: "text", in: "abc", invalid: true},
		{name: "bool", in: true, invalid: true},
		{name: "null", in: nil, invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Normalize(map[string]any{"age": tt.in})
			if tt.invalid {
				assert.True(t, f.AgeInvalid)
				assert.Nil(t, f.Age)
				return
			}
			require.NotNil(t, f.Age)
			assert.Equal(t, tt.want, *f.Age)
			assert.False(t, f.AgeInvalid)
		})
	}
}

func TestNormalizeCoercesScalarText(t *testing.T) {
	f := Normalize(map[string]any{"address": float64(221), "name": []any{"x"}})

	require.NotNil(t, f.Address)
	assert.Equal(t, "221", *f.Address)
	assert.Nil(t, f.Name)
}
