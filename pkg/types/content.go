package types

import (
	"encoding/json"
	"unicode/utf8"
)

// MaxTextLength is the longest user-entered text a message may carry,
// measured in runes. Proposal content is exempt (collapsed on display).
const MaxTextLength = 10_000

// ContentKind discriminates the closed set of message content variants.
type ContentKind string

const (
	ContentText        ContentKind = "text"
	ContentImage       ContentKind = "image"
	ContentVideo       ContentKind = "video"
	ContentAudio       ContentKind = "audio"
	ContentFile        ContentKind = "file"
	ContentPoll        ContentKind = "poll"
	ContentCrypto      ContentKind = "crypto"
	ContentGiphy       ContentKind = "giphy"
	ContentProposal    ContentKind = "proposal"
	ContentPrize       ContentKind = "prize"
	ContentPrizeWinner ContentKind = "prize_winner"
	ContentDeleted     ContentKind = "deleted"
	ContentCustom      ContentKind = "custom"
)

// Content is the tagged-variant payload a message carries. The set of
// implementations is closed; every consumption site switches exhaustively
// on the concrete type.
type Content interface {
	Kind() ContentKind
	// SearchableText returns the user-entered text carried by the content,
	// or "" when the variant carries none.
	SearchableText() string
}

// BlobReference points at an externally stored media blob.
type BlobReference struct {
	CanisterID string `json:"canister_id"`
	BlobID     uint64 `json:"blob_id"`
}

type TextContent struct {
	Text string `json:"text"`
}

type ImageContent struct {
	Width         uint32         `json:"width"`
	Height        uint32         `json:"height"`
	ThumbnailData string         `json:"thumbnail_data,omitempty"`
	Caption       string         `json:"caption,omitempty"`
	MimeType      string         `json:"mime_type"`
	BlobReference *BlobReference `json:"blob_reference,omitempty"`
}

type VideoContent struct {
	Width              uint32         `json:"width"`
	Height             uint32         `json:"height"`
	ThumbnailData      string         `json:"thumbnail_data,omitempty"`
	Caption            string         `json:"caption,omitempty"`
	MimeType           string         `json:"mime_type"`
	ImageBlobReference *BlobReference `json:"image_blob_reference,omitempty"`
	VideoBlobReference *BlobReference `json:"video_blob_reference,omitempty"`
}

type AudioContent struct {
	Caption       string         `json:"caption,omitempty"`
	MimeType      string         `json:"mime_type"`
	BlobReference *BlobReference `json:"blob_reference,omitempty"`
}

type FileContent struct {
	Name          string         `json:"name"`
	Caption       string         `json:"caption,omitempty"`
	MimeType      string         `json:"mime_type"`
	FileSize      uint32         `json:"file_size"`
	BlobReference *BlobReference `json:"blob_reference,omitempty"`
}

// CryptoTransfer describes a completed token transfer attached to a message.
type CryptoTransfer struct {
	Token     string `json:"token"`
	AmountE8s uint64 `json:"amount_e8s"`
	Recipient UserID `json:"recipient"`
}

type CryptoContent struct {
	Recipient UserID         `json:"recipient"`
	Transfer  CryptoTransfer `json:"transfer"`
	Caption   string         `json:"caption,omitempty"`
}

type GiphyImageVariant struct {
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

type GiphyContent struct {
	Caption string            `json:"caption,omitempty"`
	Title   string            `json:"title"`
	Desktop GiphyImageVariant `json:"desktop"`
	Mobile  GiphyImageVariant `json:"mobile"`
}

type ProposalContent struct {
	Title    string `json:"title"`
	Summary  string `json:"summary,omitempty"`
	Proposer UserID `json:"proposer,omitempty"`
}

type PrizeContent struct {
	PrizesRemaining uint32          `json:"prizes_remaining"`
	PrizesPending   uint32          `json:"prizes_pending"`
	Winners         []UserID        `json:"winners,omitempty"`
	Token           string          `json:"token"`
	EndDate         TimestampMillis `json:"end_date"`
	Caption         string          `json:"caption,omitempty"`
	DiamondOnly     bool            `json:"diamond_only,omitempty"`
}

type PrizeWinnerContent struct {
	Winner       UserID         `json:"winner"`
	Transfer     CryptoTransfer `json:"transfer"`
	PrizeMessage MessageIndex   `json:"prize_message"`
}

// DeletedContent is the marker substituted for the content of a deleted
// message. The message itself stays addressable.
type DeletedContent struct {
	DeletedBy UserID          `json:"deleted_by"`
	Timestamp TimestampMillis `json:"timestamp"`
}

type CustomContent struct {
	Subkind string          `json:"subkind"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (TextContent) Kind() ContentKind        { return ContentText }
func (ImageContent) Kind() ContentKind       { return ContentImage }
func (VideoContent) Kind() ContentKind       { return ContentVideo }
func (AudioContent) Kind() ContentKind       { return ContentAudio }
func (FileContent) Kind() ContentKind        { return ContentFile }
func (PollContent) Kind() ContentKind        { return ContentPoll }
func (CryptoContent) Kind() ContentKind      { return ContentCrypto }
func (GiphyContent) Kind() ContentKind       { return ContentGiphy }
func (ProposalContent) Kind() ContentKind    { return ContentProposal }
func (PrizeContent) Kind() ContentKind       { return ContentPrize }
func (PrizeWinnerContent) Kind() ContentKind { return ContentPrizeWinner }
func (DeletedContent) Kind() ContentKind     { return ContentDeleted }
func (CustomContent) Kind() ContentKind      { return ContentCustom }

func (c TextContent) SearchableText() string      { return c.Text }
func (c ImageContent) SearchableText() string     { return c.Caption }
func (c VideoContent) SearchableText() string     { return c.Caption }
func (c AudioContent) SearchableText() string     { return c.Caption }
func (c FileContent) SearchableText() string      { return c.Caption }
func (c PollContent) SearchableText() string      { return c.Config.Text }
func (c CryptoContent) SearchableText() string    { return c.Caption }
func (c GiphyContent) SearchableText() string     { return c.Caption }
func (c ProposalContent) SearchableText() string  { return c.Title }
func (c PrizeContent) SearchableText() string     { return c.Caption }
func (PrizeWinnerContent) SearchableText() string { return "" }
func (DeletedContent) SearchableText() string     { return "" }
func (CustomContent) SearchableText() string      { return "" }

// Undeletable reports whether the content kind must never be deleted.
// Completed transfers stay on the record to preserve an auditable trail.
func Undeletable(c Content) bool {
	switch c.(type) {
	case CryptoContent, PrizeWinnerContent:
		return true
	default:
		return false
	}
}

// ContainsTransfer reports whether the content moves tokens when sent.
func ContainsTransfer(c Content) bool {
	switch c.(type) {
	case CryptoContent, PrizeContent, PrizeWinnerContent:
		return true
	default:
		return false
	}
}

// ContentValidationError is the recoverable outcome of validating content
// supplied for a new message.
type ContentValidationError string

const (
	ErrContentEmpty       ContentValidationError = "empty"
	ErrContentTextTooLong ContentValidationError = "text_too_long"
	ErrContentInvalidPoll ContentValidationError = "invalid_poll"
	ErrTransferZero       ContentValidationError = "transfer_cannot_be_zero"
	ErrCannotForward      ContentValidationError = "invalid_type_for_forwarding"
)

func (e ContentValidationError) Error() string { return string(e) }

// ValidateNewContent checks content supplied for a new message. Forwarded
// messages may not carry polls or transfers.
func ValidateNewContent(c Content, forwarding bool) error {
	if forwarding {
		switch c.(type) {
		case PollContent, CryptoContent, PrizeContent:
			return ErrCannotForward
		}
	}

	empty := false
	switch v := c.(type) {
	case TextContent:
		empty = v.Text == ""
	case ImageContent:
		empty = v.BlobReference == nil
	case VideoContent:
		empty = v.VideoBlobReference == nil
	case AudioContent:
		empty = v.BlobReference == nil
	case FileContent:
		empty = v.BlobReference == nil
	case PollContent:
		if len(v.Config.Options) == 0 {
			return ErrContentInvalidPoll
		}
	case CryptoContent:
		if v.Transfer.AmountE8s == 0 {
			return ErrTransferZero
		}
	case DeletedContent:
		empty = true
	}
	if empty {
		return ErrContentEmpty
	}
	if _, ok := c.(ProposalContent); !ok {
		if utf8.RuneCountInString(c.SearchableText()) > MaxTextLength {
			return ErrContentTextTooLong
		}
	}
	return nil
}
