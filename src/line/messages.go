// backend/src/line/messages.go
package line

import "encoding/json"

// Message is the closed set of outbound payload shapes. Every variant
// carries its own "type" discriminator so reply bodies marshal directly
// into what the Messaging API expects.
type Message interface {
	isMessage()
}

type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

func (TextMessage) isMessage() {}

type TemplateMessage struct {
	Type     string   `json:"type"`
	AltText  string   `json:"altText"`
	Template Template `json:"template"`
}

func NewTemplateMessage(altText string, template Template) TemplateMessage {
	return TemplateMessage{Type: "template", AltText: altText, Template: template}
}

func (TemplateMessage) isMessage() {}

// FlexMessage carries a pre-built flex container. Contents are opaque to
// this package.
type FlexMessage struct {
	Type     string          `json:"type"`
	AltText  string          `json:"altText"`
	Contents json.RawMessage `json:"contents"`
}

func NewFlexMessage(altText string, contents json.RawMessage) FlexMessage {
	return FlexMessage{Type: "flex", AltText: altText, Contents: contents}
}

func (FlexMessage) isMessage() {}

// Template is the closed set of template bodies usable inside a
// TemplateMessage.
type Template interface {
	isTemplate()
}

type ButtonsTemplate struct {
	Type    string   `json:"type"`
	Title   string   `json:"title,omitempty"`
	Text    string   `json:"text"`
	Actions []Action `json:"actions"`
}

func NewButtonsTemplate(title, text string, actions ...Action) ButtonsTemplate {
	return ButtonsTemplate{Type: "buttons", Title: title, Text: text, Actions: actions}
}

func (ButtonsTemplate) isTemplate() {}

type CarouselTemplate struct {
	Type    string           `json:"type"`
	Columns []CarouselColumn `json:"columns"`
}

func NewCarouselTemplate(columns ...CarouselColumn) CarouselTemplate {
	return CarouselTemplate{Type: "carousel", Columns: columns}
}

func (CarouselTemplate) isTemplate() {}

type CarouselColumn struct {
	Title   string   `json:"title"`
	Text    string   `json:"text"`
	Actions []Action `json:"actions"`
}

// Action is a button inside a template.
type Action interface {
	isAction()
}

type PostbackAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Data  string `json:"data"`
}

func NewPostbackAction(label, data string) PostbackAction {
	return PostbackAction{Type: "postback", Label: label, Data: data}
}

func (PostbackAction) isAction() {}

type URIAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URI   string `json:"uri"`
}

func NewURIAction(label, uri string) URIAction {
	return URIAction{Type: "uri", Label: label, URI: uri}
}

func (URIAction) isAction() {}

type MessageAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

func NewMessageAction(label, text string) MessageAction {
	return MessageAction{Type: "message", Label: label, Text: text}
}

func (MessageAction) isAction() {}
