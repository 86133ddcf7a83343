package hebrew

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	assert.Equal(t, LangHebrew, Detect("שלום מה שלומך"))
	assert.Equal(t, LangEnglish, Detect("hello there"))
	assert.Equal(t, LangArabic, Detect("مرحبا بك"))
	assert.Equal(t, LangGibberish, Detect("12345 !@#$%"))
	assert.Equal(t, LangGibberish, Detect(""))
}

func TestIsGreeting(t *testing.T) {
	assert.True(t, IsGreeting("שלום"))
	assert.True(t, IsGreeting("  Hello  "))
	assert.False(t, IsGreeting("מה נשמע"))
}
