package types

import (
	"encoding/json"
	"fmt"

	"bondswap/crypto"
)

// BlockInfo describes the block a request executes in. Time is in seconds.
type BlockInfo struct {
	Height uint64 `json:"height"`
	Time   uint64 `json:"time"`
}

// Env is the execution environment handed to a contract.
type Env struct {
	Block    BlockInfo      `json:"block"`
	Contract crypto.Address `json:"contract"`
}

// MessageInfo identifies the caller and the native funds it attached.
type MessageInfo struct {
	Sender crypto.Address `json:"sender"`
	Funds  Coins          `json:"funds"`
}

// BankSend moves native funds from the emitting contract.
type BankSend struct {
	ToAddress crypto.Address `json:"to_address"`
	Amount    Coins          `json:"amount"`
}

// ContractExecute calls another contract on behalf of the emitting contract.
type ContractExecute struct {
	Contract crypto.Address  `json:"contract_addr"`
	Msg      json.RawMessage `json:"msg"`
	Funds    Coins           `json:"funds,omitempty"`
}

// ContractInstantiate creates a new contract instance from a registered code id.
type ContractInstantiate struct {
	CodeID uint64          `json:"code_id"`
	Msg    json.RawMessage `json:"msg"`
	Funds  Coins           `json:"funds,omitempty"`
	Label  string          `json:"label"`
	Admin  *crypto.Address `json:"admin,omitempty"`
}

// Message is an outbound instruction. Exactly one field is set.
type Message struct {
	Bank        *BankSend            `json:"bank,omitempty"`
	Execute     *ContractExecute     `json:"execute,omitempty"`
	Instantiate *ContractInstantiate `json:"instantiate,omitempty"`
}

// Kind names the populated variant.
func (m Message) Kind() string {
	switch {
	case m.Bank != nil:
		return "bank"
	case m.Execute != nil:
		return "execute"
	case m.Instantiate != nil:
		return "instantiate"
	default:
		return ""
	}
}

// Validate ensures exactly one variant is set.
func (m Message) Validate() error {
	count := 0
	if m.Bank != nil {
		count++
	}
	if m.Execute != nil {
		count++
	}
	if m.Instantiate != nil {
		count++
	}
	if count != 1 {
		return fmt.Errorf("message: expected exactly one variant, got %d", count)
	}
	return nil
}

// ReplyOn selects when the emitting contract is called back for a sub-message.
type ReplyOn uint8

const (
	ReplyNever ReplyOn = iota
	ReplySuccess
	ReplyError
	ReplyAlways
)

// OnSuccess reports whether a successful sub-message triggers a reply.
func (r ReplyOn) OnSuccess() bool { return r == ReplySuccess || r == ReplyAlways }

// OnError reports whether a failed sub-message triggers a reply instead of
// aborting the request.
func (r ReplyOn) OnError() bool { return r == ReplyError || r == ReplyAlways }

// SubMsg wraps a message with the reply policy and the id used to route the
// reply back to the emitting contract.
type SubMsg struct {
	ID      uint64  `json:"id"`
	Msg     Message `json:"msg"`
	ReplyOn ReplyOn `json:"reply_on"`
}

// NewMsg wraps a message that never replies.
func NewMsg(msg Message) SubMsg { return SubMsg{Msg: msg, ReplyOn: ReplyNever} }

// Attribute is a key/value pair attached to a response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is what a contract returns from a state-changing entry point.
type Response struct {
	Messages   []SubMsg    `json:"messages,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Events     []*Event    `json:"events,omitempty"`
	Data       []byte      `json:"data,omitempty"`
}

// NewResponse returns an empty response.
func NewResponse() *Response { return &Response{} }

// AddMessage appends a message that never replies.
func (r *Response) AddMessage(msg Message) *Response {
	r.Messages = append(r.Messages, NewMsg(msg))
	return r
}

// AddSubMessage appends a message with a reply policy.
func (r *Response) AddSubMessage(sub SubMsg) *Response {
	r.Messages = append(r.Messages, sub)
	return r
}

// AddAttribute appends a response attribute.
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// AddEvent appends an event.
func (r *Response) AddEvent(evt *Event) *Response {
	if evt != nil {
		r.Events = append(r.Events, evt)
	}
	return r
}

// Attribute returns the value of the first attribute with the key.
func (r *Response) Attribute(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// SubMsgResult carries either the events and data of a successful
// sub-message or the error message of a failed one.
type SubMsgResult struct {
	Events []*Event `json:"events,omitempty"`
	Data   []byte   `json:"data,omitempty"`
	Err    string   `json:"error,omitempty"`
}

// IsOK reports whether the sub-message succeeded.
func (r SubMsgResult) IsOK() bool { return r.Err == "" }

// Reply is delivered to the contract that emitted a sub-message.
type Reply struct {
	ID     uint64       `json:"id"`
	Result SubMsgResult `json:"result"`
}
