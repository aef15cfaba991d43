package oscctl

import (
	"encoding/json"
	"fmt"

	"github.com/zenibako/runsheet-golang/runsheet"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Reply is the JSON document carried as the single string argument of a
// /reply message.
type Reply struct {
	Status  string          `json:"status"`
	Address string          `json:"address"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	// RequestID echoes the trailing int32 argument of the request, when present.
	RequestID int32 `json:"requestId,omitempty"`
}

// ReplyError is returned by the client when the server answered with an error.
type ReplyError struct {
	Address string
	Code    string
	Message string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.Address, e.Code, e.Message)
}

func okReply(address string, data any) Reply {
	raw, err := json.Marshal(data)
	if err != nil {
		return errorReply(address, fmt.Errorf("encode reply: %w", err))
	}
	return Reply{Status: StatusOK, Address: address, Data: raw}
}

func errorReply(address string, err error) Reply {
	return Reply{
		Status:  StatusError,
		Address: address,
		Error:   err.Error(),
		Code:    runsheet.ErrorCode(err),
	}
}

func invalidRequest(address string, format string, args ...any) Reply {
	return Reply{
		Status:  StatusError,
		Address: address,
		Error:   fmt.Sprintf(format, args...),
		Code:    runsheet.CodeInvalidRequest,
	}
}

// Decode unmarshals the reply data into v, or returns the reply's error.
func (r Reply) Decode(v any) error {
	if r.Status != StatusOK {
		return &ReplyError{Address: r.Address, Code: r.Code, Message: r.Error}
	}
	if v == nil || len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode reply from %s: %w", r.Address, err)
	}
	return nil
}

func parseReply(args []any) (Reply, error) {
	if len(args) == 0 {
		return Reply{}, fmt.Errorf("empty reply")
	}
	body, ok := args[0].(string)
	if !ok {
		return Reply{}, fmt.Errorf("reply argument is %T, want string", args[0])
	}
	var r Reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return Reply{}, fmt.Errorf("parse reply: %w", err)
	}
	return r, nil
}
