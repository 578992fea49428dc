package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"tgbridge/internal/telegram"
)

type fakeDownloader struct {
	data map[int64][]byte
	err  error
}

func (d *fakeDownloader) DownloadMedia(_ context.Context, m telegram.Media) ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.data[m.ID], nil
}

func newRenderer() *Renderer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func textBlock(s string) *telegram.Block {
	return &telegram.Block{Kind: telegram.TextPlain, Text: s}
}

func TestPageBlocks(t *testing.T) {
	published := time.Date(2023, time.May, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		block telegram.Block
		want  string
	}{
		{
			name:  "plain text escapes html",
			block: telegram.Block{Kind: telegram.TextPlain, Text: "a < b & c"},
			want:  "a &lt; b &amp; c",
		},
		{
			name:  "plain text newline becomes br",
			block: telegram.Block{Kind: telegram.TextPlain, Text: "one\ntwo"},
			want:  "one<br>two",
		},
		{
			name: "nested bold italic",
			block: telegram.Block{
				Kind: telegram.TextBold,
				Child: &telegram.Block{
					Kind:  telegram.TextItalic,
					Child: textBlock("hi"),
				},
			},
			want: "<b><i>hi</i></b>",
		},
		{
			name: "title",
			block: telegram.Block{
				Kind:  telegram.BlockTitle,
				Child: textBlock("Breaking"),
			},
			want: "<h1>Breaking</h1>",
		},
		{
			name: "concat joins parts",
			block: telegram.Block{
				Kind: telegram.TextConcat,
				Items: []telegram.Block{
					{Kind: telegram.TextPlain, Text: "a"},
					{Kind: telegram.TextBold, Child: textBlock("b")},
				},
			},
			want: "a<b>b</b>",
		},
		{
			name: "url",
			block: telegram.Block{
				Kind:  telegram.TextURL,
				URL:   "https://example.com",
				Child: textBlock("link"),
			},
			want: `<a href="https://example.com">link</a>`,
		},
		{
			name: "email",
			block: telegram.Block{
				Kind:  telegram.TextEmail,
				Email: "a@b.c",
				Child: textBlock("mail"),
			},
			want: `<a href="mailto:a@b.c">mail</a>`,
		},
		{
			name: "anchor",
			block: telegram.Block{
				Kind:  telegram.TextAnchor,
				Name:  "top",
				Child: textBlock("here"),
			},
			want: `<span id="top">here</span>`,
		},
		{
			name:  "divider",
			block: telegram.Block{Kind: telegram.BlockDivider},
			want:  "<hr>",
		},
		{
			name: "list",
			block: telegram.Block{
				Kind: telegram.BlockList,
				Items: []telegram.Block{
					{Kind: telegram.BlockListItemText, Child: textBlock("one")},
					{Kind: telegram.BlockListItemText, Child: textBlock("two")},
				},
			},
			want: "<ul><li>one</li><li>two</li></ul>",
		},
		{
			name: "bordered table with header cell",
			block: telegram.Block{
				Kind:     telegram.BlockTable,
				Bordered: true,
				Title:    textBlock("Stats"),
				Items: []telegram.Block{
					{
						Kind: telegram.BlockTableRow,
						Items: []telegram.Block{
							{
								Kind:        telegram.BlockTableCell,
								Header:      true,
								AlignCenter: true,
								Child:       textBlock("x"),
							},
						},
					},
				},
			},
			want: `<table border="1"><caption>Stats</caption>` +
				`<tr><th style="text-align:center;" colspan="1" rowspan="1">x</th></tr></table>`,
		},
		{
			name: "details",
			block: telegram.Block{
				Kind:  telegram.BlockDetails,
				Title: textBlock("more"),
				Items: []telegram.Block{
					{Kind: telegram.BlockParagraph, Child: textBlock("body")},
				},
			},
			want: "<details><summary>more</summary><p>body</p></details>",
		},
		{
			name: "author and date",
			block: telegram.Block{
				Kind:      telegram.BlockAuthorDate,
				Author:    textBlock("Ann"),
				Published: published,
			},
			want: "<small>17/05/2023 - Ann</small>",
		},
		{
			name: "author date without author",
			block: telegram.Block{
				Kind:      telegram.BlockAuthorDate,
				Published: published,
			},
			want: "<small>17/05/2023</small>",
		},
		{
			name:  "empty author date",
			block: telegram.Block{Kind: telegram.BlockAuthorDate},
			want:  "",
		},
		{
			name: "caption with credit",
			block: telegram.Block{
				Kind:   telegram.BlockCaption,
				Child:  textBlock("view"),
				Credit: textBlock("photographer"),
			},
			want: "<small>view - photographer</small>",
		},
		{
			name: "embed with url",
			block: telegram.Block{
				Kind: telegram.BlockEmbed,
				URL:  "https://example.com/v.mp4",
			},
			want: `<video controls><source src="https://example.com/v.mp4"></video>`,
		},
		{
			name:  "embed without url",
			block: telegram.Block{Kind: telegram.BlockEmbed},
			want:  "",
		},
		{
			name:  "unsupported kind produces nothing",
			block: telegram.Block{Kind: telegram.BlockUnsupported},
			want:  "",
		},
	}

	r := newRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &telegram.Page{Blocks: []telegram.Block{tt.block}}
			got := r.Page(context.Background(), &fakeDownloader{}, page)
			if got != tt.want {
				t.Errorf("Page = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageUnsupportedKeepsSiblings(t *testing.T) {
	page := &telegram.Page{Blocks: []telegram.Block{
		{Kind: telegram.BlockTitle, Child: textBlock("Hi")},
		{Kind: telegram.BlockUnsupported},
		{Kind: telegram.BlockParagraph, Child: textBlock("body")},
	}}

	got := newRenderer().Page(context.Background(), &fakeDownloader{}, page)
	want := "<h1>Hi</h1><p>body</p>"
	if got != want {
		t.Errorf("Page = %q, want %q", got, want)
	}
}

func TestRenderImage(t *testing.T) {
	page := &telegram.Page{
		Documents: []telegram.Media{{ID: 7}},
	}

	tests := []struct {
		name  string
		dl    *fakeDownloader
		block telegram.Block
		want  string
	}{
		{
			name: "with explicit size",
			dl:   &fakeDownloader{data: map[int64][]byte{7: []byte("png")}},
			block: telegram.Block{
				Kind: telegram.TextImage, DocumentID: 7, W: 320, H: 200,
			},
			want: `<img src="data:image/png;base64,cG5n" style="width:320; height: 200;"/>`,
		},
		{
			name:  "default size",
			dl:    &fakeDownloader{data: map[int64][]byte{7: []byte("png")}},
			block: telegram.Block{Kind: telegram.TextImage, DocumentID: 7},
			want:  `<img src="data:image/png;base64,cG5n" style="width:100%; height: auto;"/>`,
		},
		{
			name:  "download failure degrades to blank image",
			dl:    &fakeDownloader{err: errors.New("timeout")},
			block: telegram.Block{Kind: telegram.TextImage, DocumentID: 7},
			want:  `<img src="data:image/png;base64," style="width:100%; height: auto;"/>`,
		},
		{
			name:  "document missing from pool",
			dl:    &fakeDownloader{data: map[int64][]byte{7: []byte("png")}},
			block: telegram.Block{Kind: telegram.TextImage, DocumentID: 99},
			want:  "",
		},
	}

	r := newRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := *page
			p.Blocks = []telegram.Block{tt.block}
			got := r.Page(context.Background(), tt.dl, &p)
			if got != tt.want {
				t.Errorf("Page = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderPhoto(t *testing.T) {
	dl := &fakeDownloader{data: map[int64][]byte{
		1: []byte("pre"),
		2: []byte("pic"),
	}}

	tests := []struct {
		name  string
		page  telegram.Page
		block telegram.Block
		want  string
	}{
		{
			name: "preview wins over pool",
			page: telegram.Page{
				Preview: &telegram.Media{ID: 1},
				Photos:  []telegram.Media{{ID: 1}},
			},
			block: telegram.Block{Kind: telegram.BlockPhoto, PhotoID: 1},
			want:  `<center><img src="data:image/png;base64,cHJl" alt="COVER" style="width:100%"/></center>`,
		},
		{
			name: "pool photo with caption",
			page: telegram.Page{Photos: []telegram.Media{{ID: 2}}},
			block: telegram.Block{
				Kind:    telegram.BlockPhoto,
				PhotoID: 2,
				Caption: &telegram.Block{
					Kind:  telegram.BlockCaption,
					Child: textBlock("sunset"),
				},
			},
			want: `<center><img src="data:image/png;base64,cGlj" alt="COVER" style="width:100%"/></center>` +
				"<small>sunset</small>",
		},
		{
			name:  "photo missing from pool",
			page:  telegram.Page{Photos: []telegram.Media{{ID: 2}}},
			block: telegram.Block{Kind: telegram.BlockPhoto, PhotoID: 9},
			want:  "",
		},
	}

	r := newRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := tt.page
			page.Blocks = []telegram.Block{tt.block}
			got := r.Page(context.Background(), dl, &page)
			if got != tt.want {
				t.Errorf("Page = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	r := newRenderer()

	msg := &telegram.Message{
		ID:   5,
		Text: "hello",
		Page: &telegram.Page{Blocks: []telegram.Block{
			{Kind: telegram.BlockParagraph, Child: textBlock("body")},
		}},
	}

	got := r.Message(context.Background(), &fakeDownloader{}, "News", msg)
	if got.Sender != "News" {
		t.Errorf("sender = %q, want %q", got.Sender, "News")
	}
	if got.Text != "hello" {
		t.Errorf("text = %q, want %q", got.Text, "hello")
	}
	if want := "<p>body</p>"; got.HTML != want {
		t.Errorf("html = %q, want %q", got.HTML, want)
	}
}

func TestMessageWithoutPage(t *testing.T) {
	got := newRenderer().Message(context.Background(), nil, "News", &telegram.Message{Text: "hi"})
	if got.HTML != "" {
		t.Errorf("html = %q, want empty", got.HTML)
	}
}
