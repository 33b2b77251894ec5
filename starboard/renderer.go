package starboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"mvdan.cc/xurls"
)

const (
	cardColor       = 0xffd700
	fallbackEmoji   = "⭐"
	jumpLinkFormat  = "https://discord.com/channels/%s/%s/%s"
	originalField   = "Original"
	attachmentField = "Attachment"
)

var imageFileExtensions = []string{"jpg", "jpeg", "png", "gif"}

type CardField struct {
	Name   string
	Value  string
	Inline bool
}

// Card is the structured content of a mirror message. Everything except the
// count is fixed at creation.
type Card struct {
	Title         string
	Description   string
	URL           string
	AuthorName    string
	AuthorIconURL string
	Fields        []CardField
	ImageURL      string
	ThumbnailURL  string
	Timestamp     string
	Color         int
	FooterEmoji   string
	Count         int
}

// Render builds the card for a message that just crossed the threshold
func Render(message *discordgo.Message, guildID string, count int, voteEmoji string) Card {
	card := Card{
		Description: message.Content,
		Color:       cardColor,
		FooterEmoji: footerEmoji(voteEmoji),
		Count:       count,
	}
	if message.Author != nil {
		card.AuthorName = message.Author.Username
		card.AuthorIconURL = message.Author.AvatarURL("")
	}
	if !message.Timestamp.IsZero() {
		card.Timestamp = message.Timestamp.Format(time.RFC3339)
	}

	card.Fields = append(card.Fields, CardField{
		Name:  originalField,
		Value: JumpLink(guildID, message.ChannelID, message.ID),
	})

	if len(message.Attachments) > 0 && message.Attachments[0] != nil {
		attachment := message.Attachments[0]
		if attachment.Width > 0 && attachment.Height > 0 {
			card.ImageURL = attachment.URL
		} else {
			card.Fields = append(card.Fields, CardField{
				Name:  attachmentField,
				Value: fmt.Sprintf("[%s](%s)", attachment.Filename, attachment.URL),
			})
		}
		return card
	}

	for _, embed := range message.Embeds {
		if embed == nil {
			continue
		}
		if embed.Image != nil && embed.Image.URL != "" {
			card.ImageURL = embed.Image.URL
			return card
		}
		if embed.Thumbnail != nil && embed.Thumbnail.URL != "" {
			card.ImageURL = embed.Thumbnail.URL
			return card
		}
	}

	card.ImageURL = contentImage(message.Content)
	return card
}

func JumpLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf(jumpLinkFormat, guildID, channelID, messageID)
}

func contentImage(content string) string {
	for _, foundURL := range xurls.Strict.FindAllString(content, -1) {
		lower := strings.ToLower(foundURL)
		for _, extension := range imageFileExtensions {
			if strings.HasSuffix(lower, "."+extension) {
				return foundURL
			}
		}
	}
	return ""
}

// custom emoji don't render in embed footers
func footerEmoji(emoji string) string {
	if emoji == "" || strings.HasPrefix(emoji, "<") {
		return fallbackEmoji
	}
	return emoji
}

func (c Card) FooterText() string {
	return fmt.Sprintf("%s %s", c.FooterEmoji, humanize.Comma(int64(c.Count)))
}

// WithCount returns a copy of the card showing count
func (c Card) WithCount(count int) Card {
	c.Count = count
	if c.Fields != nil {
		c.Fields = append([]CardField(nil), c.Fields...)
	}
	return c
}

func (c Card) Embed() *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       c.Title,
		Description: c.Description,
		URL:         c.URL,
		Timestamp:   c.Timestamp,
		Color:       c.Color,
		Footer:      &discordgo.MessageEmbedFooter{Text: c.FooterText()},
	}
	if c.AuthorName != "" || c.AuthorIconURL != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    c.AuthorName,
			IconURL: c.AuthorIconURL,
		}
	}
	for _, field := range c.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}
	if c.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: c.ImageURL}
	}
	if c.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: c.ThumbnailURL}
	}
	return embed
}

// CardFromEmbed parses a mirror message back into a card. A footer that
// can't be read falls back to the default emoji and a zero count.
func CardFromEmbed(embed *discordgo.MessageEmbed) Card {
	card := Card{
		Title:       embed.Title,
		Description: embed.Description,
		URL:         embed.URL,
		Timestamp:   embed.Timestamp,
		Color:       embed.Color,
		FooterEmoji: fallbackEmoji,
	}
	if embed.Author != nil {
		card.AuthorName = embed.Author.Name
		card.AuthorIconURL = embed.Author.IconURL
	}
	for _, field := range embed.Fields {
		if field == nil {
			continue
		}
		card.Fields = append(card.Fields, CardField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}
	if embed.Image != nil {
		card.ImageURL = embed.Image.URL
	}
	if embed.Thumbnail != nil {
		card.ThumbnailURL = embed.Thumbnail.URL
	}
	if embed.Footer != nil {
		card.FooterEmoji, card.Count = parseFooter(embed.Footer.Text)
	}
	return card
}

func parseFooter(text string) (string, int) {
	index := strings.LastIndex(text, " ")
	if index <= 0 {
		return fallbackEmoji, 0
	}
	count, err := strconv.Atoi(strings.Replace(text[index+1:], ",", "", -1))
	if err != nil {
		return fallbackEmoji, 0
	}
	return text[:index], count
}
