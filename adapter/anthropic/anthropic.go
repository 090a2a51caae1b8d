package anthropic

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/skosovsky/manifold"
	"github.com/skosovsky/manifold/adapter"
	"github.com/skosovsky/manifold/normalize"
)

// Translate converts a normalized Request into *anthropic.MessageNewParams.
// The system field is set only when req.System is non-empty.
func Translate(req *adapter.Request) (*anthropic.MessageNewParams, error) {
	if req == nil {
		return nil, adapter.ErrNilRequest
	}
	o := req.Options
	params := &anthropic.MessageNewParams{
		Model:         anthropic.Model(req.Model),
		MaxTokens:     o.MaxTokens,
		Temperature:   anthropic.Float(o.Temperature),
		TopK:          anthropic.Int(o.TopK),
		TopP:          anthropic.Float(o.TopP),
		StopSequences: o.Stop,
		Messages:      make([]anthropic.MessageParam, 0, len(req.Messages)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for i, msg := range req.Messages {
		m, err := message(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		params.Messages = append(params.Messages, m)
	}
	return params, nil
}

func message(msg normalize.Message) (anthropic.MessageParam, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		b, err := block(p)
		if err != nil {
			return anthropic.MessageParam{}, err
		}
		blocks = append(blocks, b)
	}
	switch msg.Role {
	case manifold.RoleUser:
		return anthropic.NewUserMessage(blocks...), nil
	case manifold.RoleAssistant:
		return anthropic.NewAssistantMessage(blocks...), nil
	default:
		return anthropic.MessageParam{}, fmt.Errorf("%w: %q", manifold.ErrUnsupportedRole, msg.Role)
	}
}

func block(p normalize.Part) (anthropic.ContentBlockParamUnion, error) {
	switch x := p.(type) {
	case normalize.Text:
		text := anthropic.TextBlockParam{Text: x.Text}
		if x.Cacheable {
			text.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		return anthropic.ContentBlockParamUnion{OfText: &text}, nil
	case normalize.Image:
		switch src := x.Source.(type) {
		case normalize.Base64Source:
			return anthropic.NewImageBlockBase64(src.MediaType, src.Data), nil
		case normalize.URLSource:
			return anthropic.ContentBlockParamUnion{OfImage: &anthropic.ImageBlockParam{
				Source: anthropic.ImageBlockParamSourceUnion{OfURL: &anthropic.URLImageSourceParam{URL: src.URL}},
			}}, nil
		}
	}
	return anthropic.ContentBlockParamUnion{}, fmt.Errorf("%w: %T", adapter.ErrUnsupportedPart, p)
}
