package types

import (
	"strings"
	"testing"
)

func TestContentClassification(t *testing.T) {
	t.Run("Undeletable", func(t *testing.T) {
		if !Undeletable(CryptoContent{}) {
			t.Fatalf("crypto content should be undeletable")
		}
		if !Undeletable(PrizeWinnerContent{}) {
			t.Fatalf("prize winner content should be undeletable")
		}
		if Undeletable(TextContent{Text: "hi"}) {
			t.Fatalf("text content should be deletable")
		}
		if Undeletable(PrizeContent{}) {
			t.Fatalf("an unclaimed prize should be deletable")
		}
	})

	t.Run("ContainsTransfer", func(t *testing.T) {
		for _, c := range []Content{CryptoContent{}, PrizeContent{}, PrizeWinnerContent{}} {
			if !ContainsTransfer(c) {
				t.Fatalf("%s should contain a transfer", c.Kind())
			}
		}
		if ContainsTransfer(TextContent{}) {
			t.Fatalf("text content should not contain a transfer")
		}
	})
}

func TestValidateNewContent(t *testing.T) {
	t.Run("EmptyText", func(t *testing.T) {
		if err := ValidateNewContent(TextContent{}, false); err != ErrContentEmpty {
			t.Fatalf("expected empty error, got %v", err)
		}
	})

	t.Run("TextTooLong", func(t *testing.T) {
		long := TextContent{Text: strings.Repeat("a", MaxTextLength+1)}
		if err := ValidateNewContent(long, false); err != ErrContentTextTooLong {
			t.Fatalf("expected text_too_long, got %v", err)
		}
		ok := TextContent{Text: strings.Repeat("a", MaxTextLength)}
		if err := ValidateNewContent(ok, false); err != nil {
			t.Fatalf("text at the limit should validate: %v", err)
		}
	})

	t.Run("ProposalExemptFromLengthCap", func(t *testing.T) {
		p := ProposalContent{Title: "t", Summary: strings.Repeat("s", MaxTextLength*2)}
		if err := ValidateNewContent(p, false); err != nil {
			t.Fatalf("proposal should be exempt: %v", err)
		}
	})

	t.Run("ImageRequiresBlob", func(t *testing.T) {
		if err := ValidateNewContent(ImageContent{Caption: "c"}, false); err != ErrContentEmpty {
			t.Fatalf("expected empty error, got %v", err)
		}
		img := ImageContent{BlobReference: &BlobReference{CanisterID: "b", BlobID: 1}}
		if err := ValidateNewContent(img, false); err != nil {
			t.Fatalf("image with blob should validate: %v", err)
		}
	})

	t.Run("PollNeedsOptions", func(t *testing.T) {
		if err := ValidateNewContent(PollContent{}, false); err != ErrContentInvalidPoll {
			t.Fatalf("expected invalid_poll, got %v", err)
		}
	})

	t.Run("ZeroTransfer", func(t *testing.T) {
		if err := ValidateNewContent(CryptoContent{}, false); err != ErrTransferZero {
			t.Fatalf("expected transfer_cannot_be_zero, got %v", err)
		}
	})

	t.Run("ForwardingRestrictions", func(t *testing.T) {
		poll := PollContent{Config: PollConfig{Options: []string{"a"}}}
		if err := ValidateNewContent(poll, true); err != ErrCannotForward {
			t.Fatalf("polls must not be forwardable, got %v", err)
		}
		if err := ValidateNewContent(TextContent{Text: "hi"}, true); err != nil {
			t.Fatalf("text should forward: %v", err)
		}
	})
}

func TestContentJSONRoundTrip(t *testing.T) {
	cases := []Content{
		TextContent{Text: "hello"},
		ImageContent{Width: 10, Height: 20, MimeType: "image/png", BlobReference: &BlobReference{CanisterID: "c", BlobID: 7}},
		PollContent{Config: PollConfig{Options: []string{"a", "b"}}, Votes: map[UserID][]uint32{"u1": {0}}},
		DeletedContent{DeletedBy: "mod", Timestamp: 99},
		GiphyContent{Title: "cat", Caption: "lol"},
	}
	for _, c := range cases {
		data, err := MarshalContent(c)
		if err != nil {
			t.Fatalf("marshal %s: %v", c.Kind(), err)
		}
		got, err := UnmarshalContent(data)
		if err != nil {
			t.Fatalf("unmarshal %s: %v", c.Kind(), err)
		}
		if got.Kind() != c.Kind() {
			t.Fatalf("kind changed: %s -> %s", c.Kind(), got.Kind())
		}
	}
}

func TestReactionIsValid(t *testing.T) {
	if !Reaction("👍").IsValid() {
		t.Fatalf("thumbs up should be valid")
	}
	if Reaction("").IsValid() {
		t.Fatalf("empty reaction should be invalid")
	}
	if Reaction(strings.Repeat("x", 41)).IsValid() {
		t.Fatalf("over-long reaction should be invalid")
	}
	if Reaction("\xff\xfe").IsValid() {
		t.Fatalf("invalid utf-8 should be rejected")
	}
}
