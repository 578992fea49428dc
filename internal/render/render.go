// Package render converts instant-view block trees into portable HTML.
package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"tgbridge/internal/model"
	"tgbridge/internal/telegram"
)

// MediaDownloader fetches raw media bytes. telegram.Client satisfies it.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, media telegram.Media) ([]byte, error)
}

// Renderer turns channel posts into the normalized bridge representation.
// Rendering never fails: a block kind without a registered renderer
// produces no output, and a node that cannot be rendered (for example
// because its image cannot be downloaded) degrades to an empty result
// without affecting its siblings.
type Renderer struct {
	log *slog.Logger
}

// New creates a Renderer.
func New(log *slog.Logger) *Renderer {
	return &Renderer{log: log}
}

// Message produces the normalized representation of one channel post.
// Attached media is fetched and size-guarded by the caller, not here.
func (r *Renderer) Message(ctx context.Context, dl MediaDownloader, sender string, msg *telegram.Message) model.BridgeMessage {
	out := model.BridgeMessage{Text: msg.Text, Sender: sender}
	if msg.Page != nil {
		out.HTML = r.Page(ctx, dl, msg.Page)
	}
	return out
}

// Page renders a whole instant-view document.
func (r *Renderer) Page(ctx context.Context, dl MediaDownloader, page *telegram.Page) string {
	if page == nil {
		return ""
	}
	rc := &renderContext{ctx: ctx, dl: dl, page: page, log: r.log}
	return rc.blocks(page.Blocks)
}

type renderContext struct {
	ctx  context.Context
	dl   MediaDownloader
	page *telegram.Page
	log  *slog.Logger
}

type renderFunc func(rc *renderContext, b *telegram.Block) string

// renderers maps each supported block kind to its template. Populated in
// init to break the initialization cycle through block.
var renderers map[telegram.BlockKind]renderFunc

func init() {
	renderers = map[telegram.BlockKind]renderFunc{
		telegram.TextPlain:       renderPlain,
		telegram.TextBold:        wrapChild("b"),
		telegram.TextItalic:      wrapChild("i"),
		telegram.TextStrike:      wrapChild("del"),
		telegram.TextUnderline:   wrapChild("u"),
		telegram.TextSubscript:   wrapChild("sub"),
		telegram.TextSuperscript: wrapChild("sup"),
		telegram.TextFixed:       passChild,
		telegram.TextMarked:      passChild,
		telegram.TextAnchor:      renderTextAnchor,
		telegram.TextEmail:       renderEmail,
		telegram.TextPhone:       renderPhone,
		telegram.TextURL:         renderURL,
		telegram.TextConcat:      passItems,
		telegram.TextImage:       renderImage,

		telegram.BlockTitle:          wrapChild("h1"),
		telegram.BlockSubtitle:       wrapChild("h2"),
		telegram.BlockHeader:         wrapChild("h2"),
		telegram.BlockSubheader:      wrapChild("h3"),
		telegram.BlockParagraph:      wrapChild("p"),
		telegram.BlockPullquote:      wrapChild("center"),
		telegram.BlockBlockquote:     wrapChild("blockquote"),
		telegram.BlockFooter:         wrapChild("footer"),
		telegram.BlockPreformatted:   passChild,
		telegram.BlockKicker:         passChild,
		telegram.BlockDivider:        renderDivider,
		telegram.BlockAnchor:         renderBlockAnchor,
		telegram.BlockDetails:        renderDetails,
		telegram.BlockTable:          renderTable,
		telegram.BlockTableRow:       wrapItems("tr"),
		telegram.BlockTableCell:      renderTableCell,
		telegram.BlockList:           wrapItems("ul"),
		telegram.BlockOrderedList:    wrapItems("ol"),
		telegram.BlockListItemText:   wrapChild("li"),
		telegram.BlockListItemBlocks: wrapItems("li"),
		telegram.BlockCover:          passChild,
		telegram.BlockEmbed:          renderEmbed,
		telegram.BlockEmbedPost:      passItems,
		telegram.BlockAuthorDate:     renderAuthorDate,
		telegram.BlockCaption:        renderCaption,
		telegram.BlockPhoto:          renderPhoto,
	}
}

func (rc *renderContext) blocks(bs []telegram.Block) string {
	var sb strings.Builder
	for i := range bs {
		sb.WriteString(rc.block(&bs[i]))
	}
	return sb.String()
}

func (rc *renderContext) block(b *telegram.Block) string {
	if b == nil {
		return ""
	}
	fn, ok := renderers[b.Kind]
	if !ok {
		return ""
	}
	return fn(rc, b)
}

func renderPlain(_ *renderContext, b *telegram.Block) string {
	return strings.ReplaceAll(html.EscapeString(b.Text), "\n", "<br>")
}

func wrapChild(tag string) renderFunc {
	return func(rc *renderContext, b *telegram.Block) string {
		return "<" + tag + ">" + rc.block(b.Child) + "</" + tag + ">"
	}
}

func wrapItems(tag string) renderFunc {
	return func(rc *renderContext, b *telegram.Block) string {
		return "<" + tag + ">" + rc.blocks(b.Items) + "</" + tag + ">"
	}
}

func passChild(rc *renderContext, b *telegram.Block) string {
	return rc.block(b.Child)
}

func passItems(rc *renderContext, b *telegram.Block) string {
	return rc.blocks(b.Items)
}

func renderTextAnchor(rc *renderContext, b *telegram.Block) string {
	return fmt.Sprintf(`<span id="%s">%s</span>`, b.Name, rc.block(b.Child))
}

func renderEmail(rc *renderContext, b *telegram.Block) string {
	return fmt.Sprintf(`<a href="mailto:%s">%s</a>`, b.Email, rc.block(b.Child))
}

func renderPhone(rc *renderContext, b *telegram.Block) string {
	return fmt.Sprintf(`<a href="tel:%s">%s</a>`, b.Phone, rc.block(b.Child))
}

func renderURL(rc *renderContext, b *telegram.Block) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, b.URL, rc.block(b.Child))
}

func renderImage(rc *renderContext, b *telegram.Block) string {
	var doc *telegram.Media
	for i := range rc.page.Documents {
		if rc.page.Documents[i].ID == b.DocumentID {
			doc = &rc.page.Documents[i]
			break
		}
	}
	if doc == nil {
		return ""
	}
	width := "100%"
	if b.W > 0 {
		width = strconv.Itoa(b.W)
	}
	height := "auto"
	if b.H > 0 {
		height = strconv.Itoa(b.H)
	}
	return fmt.Sprintf(`<img src="data:image/png;base64,%s" style="width:%s; height: %s;"/>`,
		rc.download(*doc), width, height)
}

func renderDivider(_ *renderContext, _ *telegram.Block) string {
	return "<hr>"
}

func renderBlockAnchor(_ *renderContext, b *telegram.Block) string {
	return fmt.Sprintf(`<span id="%s"></span>`, b.Name)
}

func renderDetails(rc *renderContext, b *telegram.Block) string {
	return fmt.Sprintf("<details><summary>%s</summary>%s</details>",
		rc.block(b.Title), rc.blocks(b.Items))
}

func renderTable(rc *renderContext, b *telegram.Block) string {
	open := "<table>"
	if b.Bordered {
		open = `<table border="1">`
	}
	return fmt.Sprintf("%s<caption>%s</caption>%s</table>",
		open, rc.block(b.Title), rc.blocks(b.Items))
}

func renderTableCell(rc *renderContext, b *telegram.Block) string {
	tag := "td"
	if b.Header {
		tag = "th"
	}
	var style string
	if b.AlignCenter {
		style += "text-align:center;"
	} else if b.AlignRight {
		style += "text-align:right;"
	}
	if b.ValignMiddle {
		style += "vertical-align:middle;"
	} else if b.ValignBottom {
		style += "vertical-align:bottom;"
	}
	colspan, rowspan := b.Colspan, b.Rowspan
	if colspan < 1 {
		colspan = 1
	}
	if rowspan < 1 {
		rowspan = 1
	}
	return fmt.Sprintf(`<%s style="%s" colspan="%d" rowspan="%d">%s</%s>`,
		tag, style, colspan, rowspan, rc.block(b.Child), tag)
}

func renderEmbed(_ *renderContext, b *telegram.Block) string {
	if b.URL == "" {
		return ""
	}
	return fmt.Sprintf(`<video controls><source src="%s"></video>`, b.URL)
}

func renderAuthorDate(rc *renderContext, b *telegram.Block) string {
	var date string
	if !b.Published.IsZero() {
		date = b.Published.Format("02/01/2006")
	}
	return smallPair(date, rc.block(b.Author))
}

func renderCaption(rc *renderContext, b *telegram.Block) string {
	return smallPair(rc.block(b.Child), rc.block(b.Credit))
}

// smallPair joins the non-empty parts with a separator and wraps them in
// a small tag, or returns nothing when both parts are empty.
func smallPair(first, second string) string {
	var parts []string
	for _, p := range []string{first, second} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "<small>" + strings.Join(parts, " - ") + "</small>"
}

func renderPhoto(rc *renderContext, b *telegram.Block) string {
	var photo *telegram.Media
	if rc.page.Preview != nil && rc.page.Preview.ID == b.PhotoID {
		photo = rc.page.Preview
	}
	if photo == nil {
		for i := range rc.page.Photos {
			if rc.page.Photos[i].ID == b.PhotoID {
				photo = &rc.page.Photos[i]
				break
			}
		}
	}
	if photo == nil {
		return ""
	}
	img := fmt.Sprintf(`<center><img src="data:image/png;base64,%s" alt="COVER" style="width:100%%"/></center>`,
		rc.download(*photo))
	return img + rc.block(b.Caption)
}

// download fetches and base64-encodes one image. A failure is logged and
// yields an empty encoding, degrading to a blank image.
func (rc *renderContext) download(media telegram.Media) string {
	if rc.dl == nil {
		return ""
	}
	data, err := rc.dl.DownloadMedia(rc.ctx, media)
	if err != nil {
		rc.log.Error("download page image", "media_id", media.ID, "error", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}
