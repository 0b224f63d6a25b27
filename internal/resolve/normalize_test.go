package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeKey(""))
	assert.Equal(t, "", NormalizeKey("   "))
	assert.Equal(t, "", NormalizeKey(" -./ "))
}

func TestNormalizeKey_Uppercase(t *testing.T) {
	assert.Equal(t, "ABC123", NormalizeKey("abc123"))
}

func TestNormalizeKey_Accents(t *testing.T) {
	assert.Equal(t, "JOAOSILVA", NormalizeKey(" joão Silva "))
	assert.Equal(t, "JOAOSILVA", NormalizeKey("JOAO SILVA"))
	assert.Equal(t, "CONCEICAO", NormalizeKey("Conceição"))
	assert.Equal(t, "MARCIOLECA", NormalizeKey("Márcio Leça"))
}

func TestNormalizeKey_FoldsLetters(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "Søren", expected: "SOREN"},
		{input: "Straße", expected: "STRASSE"},
		{input: "Æsa", expected: "AESA"},
		{input: "Œuvre", expected: "OEUVRE"},
		{input: "Łukasz", expected: "LUKASZ"},
		{input: "Đorđe", expected: "DORDE"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeKey(tt.input))
		})
	}
	assert.Equal(t, NormalizeKey("Soren"), NormalizeKey("Søren"))
}

func TestNormalizeKey_StripsPunctuation(t *testing.T) {
	assert.Equal(t, "12345678900", NormalizeKey("123.456.789-00"))
	assert.Equal(t, "AB12", NormalizeKey("a_b\t1/2"))
}

func TestNormalizeKey_Idempotent(t *testing.T) {
	inputs := []string{
		"", " x ", "joão", "ÁÉÍÓÚ áéíóú", "123.456-7", "ñandú", "Straße", "çà la mode", "日本", "Á",
	}
	for _, in := range inputs {
		once := NormalizeKey(in)
		assert.Equal(t, once, NormalizeKey(once), "input %q", in)
	}
}

func TestNormalizeKey_Equivalence(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{name: "case", a: "cliente", b: "CLIENTE"},
		{name: "surrounding whitespace", a: "  ABC  ", b: "ABC"},
		{name: "accents", a: "Ânderson", b: "ANDERSON"},
		{name: "combining mark", a: "José", b: "JOSÉ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, NormalizeKey(tt.a), NormalizeKey(tt.b))
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "74930", expected: "74930"},
		{name: "float cell", input: "74930.0", expected: "74930"},
		{name: "padded", input: " 74930 ", expected: "74930"},
		{name: "alphanumeric", input: "a-123", expected: "A123"},
		{name: "fractional stays", input: "12.5", expected: "125"},
		{name: "empty", input: "", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCode(tt.input))
		})
	}
}
