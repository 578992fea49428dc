package telegram

import (
	"time"

	"tgbridge/internal/model"
)

// Chat describes a resolved Telegram entity.
type Chat struct {
	ID         int64
	Title      string
	Username   string
	Broadcast  bool  // true for broadcast channels, false for groups and private chats
	TopMessage int64 // id of the most recent message at resolution time
}

// Media references a downloadable photo, video or document.
type Media struct {
	ID   int64
	Kind model.MediaKind
	Size int64
	Name string
}

// Message is one channel post as returned by the provider.
type Message struct {
	ID    int64
	Text  string
	Media *Media
	Page  *Page
}

// Page is an instant-view document: a tree of typed blocks plus the
// resource pools referenced by photo and image blocks.
type Page struct {
	Blocks    []Block
	Photos    []Media
	Documents []Media
	Preview   *Media // message-level preview photo, consulted before the pool
}

// BlockKind identifies the type of an instant-view block.
type BlockKind int

// Block kinds known to the renderer. A kind without a registered
// renderer (maps, collages, slideshows, audio, ...) produces no output.
const (
	BlockUnsupported BlockKind = iota

	TextPlain
	TextBold
	TextItalic
	TextStrike
	TextUnderline
	TextSubscript
	TextSuperscript
	TextFixed
	TextMarked
	TextAnchor
	TextEmail
	TextPhone
	TextURL
	TextConcat
	TextImage

	BlockTitle
	BlockSubtitle
	BlockHeader
	BlockSubheader
	BlockParagraph
	BlockPullquote
	BlockBlockquote
	BlockFooter
	BlockPreformatted
	BlockKicker
	BlockDivider
	BlockAnchor
	BlockDetails
	BlockTable
	BlockTableRow
	BlockTableCell
	BlockList
	BlockOrderedList
	BlockListItemText
	BlockListItemBlocks
	BlockCover
	BlockEmbed
	BlockEmbedPost
	BlockAuthorDate
	BlockCaption
	BlockPhoto
)

// Block is a tagged union over instant-view node types. Only the fields
// relevant to Kind are populated.
type Block struct {
	Kind BlockKind

	Text  string  // TextPlain leaf content
	Child *Block  // wrapped rich text (bold body, paragraph body, cell text, ...)
	Items []Block // child sequences (concat parts, list items, table rows and cells, ...)

	Name  string // TextAnchor, BlockAnchor
	URL   string // TextURL, BlockEmbed
	Email string // TextEmail
	Phone string // TextPhone

	DocumentID int64 // TextImage
	PhotoID    int64 // BlockPhoto
	W, H       int   // TextImage declared dimensions, zero for unset

	Bordered                   bool // BlockTable
	Header                     bool // BlockTableCell
	AlignCenter, AlignRight    bool
	ValignMiddle, ValignBottom bool
	Colspan, Rowspan           int

	Title     *Block    // BlockDetails and BlockTable caption
	Author    *Block    // BlockAuthorDate
	Caption   *Block    // BlockPhoto
	Credit    *Block    // BlockCaption credit part; Child holds the caption text
	Published time.Time // BlockAuthorDate
}
