package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tgbridge/internal/model"
)

// Send delivers one bridged message to a destination chat. Media posts
// become photo/video/document uploads, posts with a rendered article
// attach it as an HTML file and plain posts go out as text.
func (b *Bot) Send(_ context.Context, destID int64, m model.BridgeMessage) error {
	text := FormatPost(m)

	var c tgbotapi.Chattable
	switch {
	case len(m.Media) > 0:
		file := tgbotapi.FileBytes{Name: mediaFileName(m), Bytes: m.Media}
		switch m.MediaKind {
		case model.MediaImage:
			photo := tgbotapi.NewPhoto(destID, file)
			photo.Caption = text
			c = photo
		case model.MediaVideo:
			video := tgbotapi.NewVideo(destID, file)
			video.Caption = text
			c = video
		default:
			doc := tgbotapi.NewDocument(destID, file)
			doc.Caption = text
			c = doc
		}
	case m.HTML != "":
		doc := tgbotapi.NewDocument(destID, tgbotapi.FileBytes{
			Name:  "article.html",
			Bytes: []byte(m.HTML),
		})
		doc.Caption = text
		c = doc
	default:
		msg := tgbotapi.NewMessage(destID, text)
		msg.DisableWebPagePreview = true
		c = msg
	}

	_, err := b.api.Send(c)
	return err
}

func mediaFileName(m model.BridgeMessage) string {
	if m.MediaName != "" {
		return m.MediaName
	}
	switch m.MediaKind {
	case model.MediaImage:
		return "photo.jpg"
	case model.MediaVideo:
		return "video.mp4"
	default:
		return "file.bin"
	}
}
