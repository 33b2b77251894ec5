package starboard

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessageWith(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Content:   content,
		Author:    &discordgo.User{ID: "a1", Username: "poster"},
		Timestamp: time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

func TestRenderBasics(t *testing.T) {
	card := Render(testMessageWith("hello"), "g1", 1234, "⭐")

	assert.Equal(t, "hello", card.Description)
	assert.Equal(t, "poster", card.AuthorName)
	assert.NotEmpty(t, card.AuthorIconURL)
	assert.Equal(t, "2021-05-06T07:08:09Z", card.Timestamp)
	assert.Equal(t, 0xffd700, card.Color)
	require.Len(t, card.Fields, 1)
	assert.Equal(t, CardField{Name: "Original", Value: "https://discord.com/channels/g1/c1/m1"}, card.Fields[0])
	assert.Empty(t, card.ImageURL)
	assert.Equal(t, "⭐ 1,234", card.FooterText())
}

func TestRenderAttachments(t *testing.T) {
	image := testMessageWith("")
	image.Attachments = []*discordgo.MessageAttachment{
		{Filename: "a.png", URL: "https://cdn/a.png", Width: 100, Height: 50},
		{Filename: "b.png", URL: "https://cdn/b.png", Width: 100, Height: 50},
	}
	card := Render(image, "g1", 1, "⭐")
	assert.Equal(t, "https://cdn/a.png", card.ImageURL)
	assert.Len(t, card.Fields, 1)

	file := testMessageWith("see file")
	file.Attachments = []*discordgo.MessageAttachment{
		{Filename: "notes.txt", URL: "https://cdn/notes.txt"},
		{Filename: "b.png", URL: "https://cdn/b.png", Width: 100, Height: 50},
	}
	card = Render(file, "g1", 1, "⭐")
	assert.Empty(t, card.ImageURL)
	require.Len(t, card.Fields, 2)
	assert.Equal(t, CardField{Name: "Attachment", Value: "[notes.txt](https://cdn/notes.txt)"}, card.Fields[1])

	// width without height is not an image
	partial := testMessageWith("")
	partial.Attachments = []*discordgo.MessageAttachment{
		{Filename: "x.bin", URL: "https://cdn/x.bin", Width: 100},
	}
	card = Render(partial, "g1", 1, "⭐")
	assert.Empty(t, card.ImageURL)
	assert.Len(t, card.Fields, 2)
}

func TestRenderImageFallbacks(t *testing.T) {
	embedded := testMessageWith("https://example.com/other.jpg")
	embedded.Embeds = []*discordgo.MessageEmbed{
		{Title: "no image"},
		{Thumbnail: &discordgo.MessageEmbedThumbnail{URL: "https://example.com/thumb.png"}},
	}
	assert.Equal(t, "https://example.com/thumb.png", Render(embedded, "g1", 1, "⭐").ImageURL)

	linked := testMessageWith("look https://example.com/page and https://example.com/cat.JPG")
	assert.Equal(t, "https://example.com/cat.JPG", Render(linked, "g1", 1, "⭐").ImageURL)

	plain := testMessageWith("https://example.com/page")
	assert.Empty(t, Render(plain, "g1", 1, "⭐").ImageURL)
}

func TestFooterEmoji(t *testing.T) {
	assert.Equal(t, "🌟", footerEmoji("🌟"))
	assert.Equal(t, "⭐", footerEmoji("<:gold:123>"))
	assert.Equal(t, "⭐", footerEmoji("<a:spin:123>"))
	assert.Equal(t, "⭐", footerEmoji(""))
}

func TestCardRoundTrip(t *testing.T) {
	message := testMessageWith("hello")
	message.Attachments = []*discordgo.MessageAttachment{
		{Filename: "a.png", URL: "https://cdn/a.png", Width: 1, Height: 1},
	}
	card := Render(message, "g1", 5, "🌟")
	card.Title = "title"
	card.ThumbnailURL = "https://cdn/thumb.png"

	parsed := CardFromEmbed(card.Embed())
	assert.Equal(t, card, parsed)

	updated := parsed.WithCount(1500)
	assert.Equal(t, "🌟 1,500", updated.FooterText())
	assert.Equal(t, 5, parsed.Count)

	before, after := card.Embed(), updated.Embed()
	before.Footer, after.Footer = nil, nil
	assert.Equal(t, before, after)
}

func TestParseFooter(t *testing.T) {
	cases := []struct {
		text  string
		emoji string
		count int
	}{
		{"⭐ 12", "⭐", 12},
		{"🌟 1,234,567", "🌟", 1234567},
		{"garbage", "⭐", 0},
		{"⭐ many", "⭐", 0},
		{"", "⭐", 0},
	}
	for _, c := range cases {
		emoji, count := parseFooter(c.text)
		assert.Equal(t, c.emoji, emoji, c.text)
		assert.Equal(t, c.count, count, c.text)
	}
}

func TestReactionAPIName(t *testing.T) {
	assert.Equal(t, "⭐", reactionAPIName("⭐"))
	assert.Equal(t, "gold:123", reactionAPIName("<:gold:123>"))
	assert.Equal(t, "spin:456", reactionAPIName("<a:spin:456>"))
}
