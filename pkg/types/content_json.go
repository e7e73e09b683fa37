package types

import (
	"encoding/json"
	"fmt"
)

// contentEnvelope is the wire form of a Content value: a kind discriminator
// plus the variant's own fields.
type contentEnvelope struct {
	Kind    ContentKind     `json:"kind"`
	Content json.RawMessage `json:"content"`
}

// MarshalContent encodes a Content value with its kind discriminator so it
// can be decoded back into the right concrete type.
func MarshalContent(c Content) ([]byte, error) {
	inner, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(contentEnvelope{Kind: c.Kind(), Content: inner})
}

// UnmarshalContent decodes a value previously produced by MarshalContent.
func UnmarshalContent(data []byte) (Content, error) {
	var env contentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	var c Content
	switch env.Kind {
	case ContentText:
		c = &TextContent{}
	case ContentImage:
		c = &ImageContent{}
	case ContentVideo:
		c = &VideoContent{}
	case ContentAudio:
		c = &AudioContent{}
	case ContentFile:
		c = &FileContent{}
	case ContentPoll:
		c = &PollContent{}
	case ContentCrypto:
		c = &CryptoContent{}
	case ContentGiphy:
		c = &GiphyContent{}
	case ContentProposal:
		c = &ProposalContent{}
	case ContentPrize:
		c = &PrizeContent{}
	case ContentPrizeWinner:
		c = &PrizeWinnerContent{}
	case ContentDeleted:
		c = &DeletedContent{}
	case ContentCustom:
		c = &CustomContent{}
	default:
		return nil, fmt.Errorf("unknown content kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Content, c); err != nil {
		return nil, err
	}
	return deref(c), nil
}

// deref returns the value form so concrete-type switches see value types.
func deref(c Content) Content {
	switch v := c.(type) {
	case *TextContent:
		return *v
	case *ImageContent:
		return *v
	case *VideoContent:
		return *v
	case *AudioContent:
		return *v
	case *FileContent:
		return *v
	case *PollContent:
		return *v
	case *CryptoContent:
		return *v
	case *GiphyContent:
		return *v
	case *ProposalContent:
		return *v
	case *PrizeContent:
		return *v
	case *PrizeWinnerContent:
		return *v
	case *DeletedContent:
		return *v
	case *CustomContent:
		return *v
	default:
		return c
	}
}
