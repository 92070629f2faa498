package service

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgGenerate = "caption.generate"
	msgMix      = "caption.mix"
	msgCollage  = "caption.collage"
	msgUpload   = "caption.upload"
	msgHelp     = "help"
)

var supportedLocales = []language.Tag{language.English, language.Russian}

// Captions renders user-facing text in English or Russian.
type Captions struct {
	cat      *catalog.Builder
	fallback language.Tag
}

func NewCaptions(defaultLocale string) *Captions {
	cat := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(tag language.Tag, key, msg string) {
		_ = cat.SetString(tag, key, msg)
	}

	set(language.English, msgGenerate, "🖼 Generated from %d images in this chat\n✨ A unique style made by the studio")
	set(language.English, msgMix, "🎭 Style mix of %d images\n💫 A unique blend of colours and effects")
	set(language.English, msgCollage, "🧩 Collage of the last %d images")
	set(language.English, msgUpload, "✅ Image saved! Total: %d")
	set(language.English, msgHelp, "📸 Upload a photo to add it to the collection\n"+
		"🎨 generate: a new image in the collection's style (2+ images)\n"+
		"🎭 mix: a blend of styles from several images (3+ images)\n"+
		"🧩 collage: a 2x2 grid of the latest images (2+ images)\n"+
		"📊 stats: collection statistics")

	set(language.Russian, msgGenerate, "🖼 Сгенерировано на основе %d изображений из этого чата\n✨ Уникальный стиль, созданный ИИ")
	set(language.Russian, msgMix, "🎭 Микс стилей из %d изображений\n💫 Уникальная комбинация цветов и эффектов")
	set(language.Russian, msgCollage, "🧩 Коллаж из последних %d изображений")
	set(language.Russian, msgUpload, "✅ Изображение сохранено! Всего: %d")
	set(language.Russian, msgHelp, "📸 Отправьте фото, чтобы добавить его в коллекцию\n"+
		"🎨 generate: новое изображение в стиле коллекции (от 2 изображений)\n"+
		"🎭 mix: микс стилей из нескольких изображений (от 3 изображений)\n"+
		"🧩 collage: сетка 2x2 из последних изображений (от 2 изображений)\n"+
		"📊 stats: статистика коллекции")

	c := &Captions{cat: cat}
	c.fallback = c.Match(defaultLocale)
	return c
}

// Match maps a locale string such as "ru-RU" or an Accept-Language header to
// a supported tag. Unknown or empty input yields the default locale.
func (c *Captions) Match(locale string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		if c.fallback != language.Und {
			return c.fallback
		}
		return language.English
	}
	for _, t := range tags {
		base, _ := t.Base()
		for _, s := range supportedLocales {
			if sb, _ := s.Base(); sb == base {
				return s
			}
		}
	}
	if c.fallback != language.Und {
		return c.fallback
	}
	return language.English
}

func (c *Captions) printer(locale string) *message.Printer {
	return message.NewPrinter(c.Match(locale), message.Catalog(c.cat))
}

func (c *Captions) Generate(locale string, count int) string {
	return c.printer(locale).Sprintf(msgGenerate, count)
}

func (c *Captions) Mix(locale string, count int) string {
	return c.printer(locale).Sprintf(msgMix, count)
}

func (c *Captions) Collage(locale string, count int) string {
	return c.printer(locale).Sprintf(msgCollage, count)
}

func (c *Captions) Upload(locale string, total int) string {
	return c.printer(locale).Sprintf(msgUpload, total)
}

func (c *Captions) Help(locale string) string {
	return c.printer(locale).Sprintf(msgHelp)
}
