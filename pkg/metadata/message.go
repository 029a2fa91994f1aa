package metadata

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is the language code assumed for message content that
// does not carry an explicit one.
const DefaultLanguage = "en"

// MessageType is the severity of a message.
type MessageType int

// Message severities, ordered from least to most severe.
const (
	SayMessage MessageType = iota
	WarnMessage
	ErrorMessage
)

// String returns the document form of the severity.
func (t MessageType) String() string {
	switch t {
	case WarnMessage:
		return "warn"
	case ErrorMessage:
		return "error"
	default:
		return "say"
	}
}

// UnmarshalYAML decodes a severity. Unrecognized values map to say, so
// newer list documents stay readable.
func (t *MessageType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "warn":
		*t = WarnMessage
	case "error":
		*t = ErrorMessage
	default:
		*t = SayMessage
	}
	return nil
}

// MarshalYAML emits the document form of the severity.
func (t MessageType) MarshalYAML() (any, error) {
	return t.String(), nil
}

// MarshalJSON emits the document form of the severity.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// MessageContent is one localisation of a message's text.
type MessageContent struct {
	Text string `yaml:"str" json:"text"`
	Lang string `yaml:"lang" json:"lang"`
}

// Message is a note attached to a plugin entry or to a list as a whole.
type Message struct {
	Type      MessageType      `json:"type"`
	Content   []MessageContent `json:"content"`
	Condition string           `json:"condition,omitempty"`
}

// GetContent returns the localisation best matching the given language
// code: an exact match, then the DefaultLanguage entry, then the first
// entry. ok is false when the message has no content at all.
func (m Message) GetContent(lang string) (MessageContent, bool) {
	if len(m.Content) == 0 {
		return MessageContent{}, false
	}
	var fallback *MessageContent
	for i := range m.Content {
		if m.Content[i].Lang == lang {
			return m.Content[i], true
		}
		if fallback == nil && m.Content[i].Lang == DefaultLanguage {
			fallback = &m.Content[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return m.Content[0], true
}

// contentList decodes the content key, which is either a bare string or
// a sequence of localisations.
type contentList []MessageContent

func (c *contentList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var text string
		if err := value.Decode(&text); err != nil {
			return err
		}
		*c = contentList{{Text: text, Lang: DefaultLanguage}}
		return nil
	case yaml.SequenceNode:
		var items []MessageContent
		if err := value.Decode(&items); err != nil {
			return err
		}
		*c = contentList(items)
		return nil
	default:
		return fmt.Errorf("line %d: %w: content must be a string or a sequence", value.Line, ErrMalformed)
	}
}

type messageDoc struct {
	Type      MessageType `yaml:"type"`
	Content   contentList `yaml:"content"`
	Condition string      `yaml:"condition,omitempty"`
}

// UnmarshalYAML decodes a message. Multilingual content must include a
// DefaultLanguage entry to fall back on.
func (m *Message) UnmarshalYAML(value *yaml.Node) error {
	var aux messageDoc
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if len(aux.Content) == 0 {
		return fmt.Errorf("line %d: %w: message must have content", value.Line, ErrMalformed)
	}
	if len(aux.Content) > 1 && !hasLanguage(aux.Content, DefaultLanguage) {
		return fmt.Errorf("line %d: %w: multilingual content must include a %q entry",
			value.Line, ErrMalformed, DefaultLanguage)
	}
	m.Type = aux.Type
	m.Content = []MessageContent(aux.Content)
	m.Condition = aux.Condition
	return nil
}

// MarshalYAML emits the compact string content form when the message
// carries a single DefaultLanguage localisation.
func (m Message) MarshalYAML() (any, error) {
	if len(m.Content) == 1 && m.Content[0].Lang == DefaultLanguage {
		return struct {
			Type      MessageType `yaml:"type"`
			Content   string      `yaml:"content"`
			Condition string      `yaml:"condition,omitempty"`
		}{m.Type, m.Content[0].Text, m.Condition}, nil
	}
	return struct {
		Type      MessageType      `yaml:"type"`
		Content   []MessageContent `yaml:"content"`
		Condition string           `yaml:"condition,omitempty"`
	}{m.Type, m.Content, m.Condition}, nil
}

func hasLanguage(content []MessageContent, lang string) bool {
	for _, c := range content {
		if c.Lang == lang {
			return true
		}
	}
	return false
}

// cloneMessages deep-copies a message sequence.
func cloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		out[i].Content = append([]MessageContent(nil), m.Content...)
	}
	return out
}
