package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestCaptionsMatch(t *testing.T) {
	en := NewCaptions("en")
	ru := NewCaptions("ru")

	assert.Equal(t, language.Russian, en.Match("ru-RU"))
	assert.Equal(t, language.Russian, en.Match("fr-FR, ru;q=0.8"))
	assert.Equal(t, language.English, en.Match(""))
	assert.Equal(t, language.English, en.Match("de"))
	assert.Equal(t, language.Russian, ru.Match(""))
	assert.Equal(t, language.Russian, ru.Match("%%%"))
}

func TestCaptionsRender(t *testing.T) {
	c := NewCaptions("en")

	assert.Contains(t, c.Generate("en", 7), "Generated from 7 images")
	assert.Contains(t, c.Generate("ru", 7), "на основе 7 изображений")
	assert.Contains(t, c.Mix("en", 4), "Style mix of 4 images")
	assert.Contains(t, c.Collage("ru", 3), "Коллаж из последних 3")
	assert.Contains(t, c.Upload("en", 2), "Total: 2")
	assert.Contains(t, c.Help("ru"), "mix")
}
