// Package wire 定义服务端与客户端共用的 JSON 结构：WS 帧、REST 返回体。
package wire

import "encoding/json"

// Frame WS 帧。上行/下行共用一个外壳，按 Type 区分。
//
//   - 上行 message/read_ack/delivery_ack/typing_*：ChannelURL + Data
//   - 下行 ack/error：PacketID 对应上行请求
//   - 下行 event：Event 为 cons.Event*，Data 为事件负载
type Frame struct {
	Type        string          `json:"type"`
	PacketID    string          `json:"packet_id,omitempty"`
	Event       string          `json:"event,omitempty"`
	ChannelURL  string          `json:"channel_url,omitempty"`
	ChannelType string          `json:"channel_type,omitempty"`
	Code        int             `json:"code,omitempty"`
	Message     string          `json:"message,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// NewFrame 构造帧并把 data 序列化进 Data。data 为 nil 时不带 Data。
func NewFrame(typ string, data any) (Frame, error) {
	f := Frame{Type: typ}
	if data == nil {
		return f, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return f, err
	}
	f.Data = b
	return f, nil
}

// Decode 把 Data 解到 v。
func (f Frame) Decode(v any) error {
	if len(f.Data) == 0 {
		return nil
	}
	return json.Unmarshal(f.Data, v)
}

// SendMessageReq 上行 message 帧的 Data
type SendMessageReq struct {
	RequestID        string      `json:"request_id"`
	Message          string      `json:"message"`
	Data             string      `json:"data,omitempty"`
	CustomType       string      `json:"custom_type,omitempty"`
	MentionedUserIDs []string    `json:"mentioned_user_ids,omitempty"`
	MetaArrays       []MetaArray `json:"meta_arrays,omitempty"`
	ParentMessageID  uint64      `json:"parent_message_id,omitempty"`
}

// ReadAckReq 上行 read_ack 帧的 Data。MessageID 为 0 表示读到最新。
type ReadAckReq struct {
	MessageID uint64 `json:"message_id,omitempty"`
}

// DeliveryAckReq 上行 delivery_ack 帧的 Data
type DeliveryAckReq struct {
	MessageID uint64 `json:"message_id"`
}

// SendFileMessageReq 发送文件消息。File.URL 为已上传文件或外部地址。
type SendFileMessageReq struct {
	SendMessageReq
	File File `json:"file"`
}
