package feishu

import (
	"fmt"

	otpdomain "otp-relay/internal/otp/domain"
	projectdomain "otp-relay/internal/project/domain"
	"otp-relay/internal/responder"
)

type text struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

// InputValue is attached to the card's input and echoed back in the card action callback.
type InputValue struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
}

type cardConfig struct {
	UpdateMulti    bool `json:"update_multi"`
	WideScreenMode bool `json:"wide_screen_mode"`
}

type cardHeader struct {
	Title    text   `json:"title"`
	Template string `json:"template"`
}

// Card is an interactive message card.
type Card struct {
	Config   cardConfig `json:"config"`
	Header   cardHeader `json:"header"`
	Elements []any      `json:"elements"`
}

type markdownElement struct {
	Tag       string `json:"tag"`
	Content   string `json:"content"`
	TextAlign string `json:"text_align,omitempty"`
}

type inputElement struct {
	Tag          string     `json:"tag"`
	Name         string     `json:"name"`
	Placeholder  text       `json:"placeholder"`
	DefaultValue string     `json:"default_value"`
	Width        string     `json:"width"`
	Value        InputValue `json:"value"`
}

type actionElement struct {
	Tag      string `json:"tag"`
	Actions  []any  `json:"actions"`
	Fallback struct {
		Tag  string `json:"tag"`
		Text text   `json:"text"`
	} `json:"fallback"`
}

// NewCard builds the OTP card for req. The input's value carries the request id.
func NewCard(project *projectdomain.Project, req *otpdomain.Request, info *otpdomain.RequestInformation, mention string) *Card {
	body := responder.Explanation(project)
	if mention != "" {
		body = fmt.Sprintf("<at id=%s></at> %s", mention, body)
	}
	if info != nil {
		body += fmt.Sprintf("\n**Request source:** [%s](%s)", info.Description, info.URL)
	}

	action := actionElement{Tag: "action", Actions: []any{inputElement{
		Tag:         "input",
		Name:        responder.CommandMarker,
		Placeholder: text{Tag: "plain_text", Content: "Enter OTP here"},
		Width:       "default",
		Value:       InputValue{Action: responder.CommandMarker, RequestID: req.ID},
	}}}
	action.Fallback.Tag = "fallback_text"
	action.Fallback.Text = text{Tag: "plain_text", Content: "Update Feishu to 6.8 or later to answer this request."}

	return &Card{
		Config: cardConfig{UpdateMulti: true, WideScreenMode: true},
		Header: cardHeader{Title: text{Tag: "plain_text", Content: "OTP Request"}, Template: "yellow"},
		Elements: []any{
			markdownElement{Tag: "markdown", Content: body, TextAlign: "left"},
			action,
		},
	}
}
