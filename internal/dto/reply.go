package dto

import (
	"errors"

	"github.com/noah-isme/slot-booking/pkg/codec"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

// Reply is the wire form of every server response.
type Reply struct {
	Version  int    `cbor:"v"`
	OK       bool   `cbor:"OK"`
	Text     string `cbor:"text"`
	Code     string `cbor:"code,omitempty"`
	ClientID *int64 `cbor:"client_id,omitempty"`
	Token    string `cbor:"token,omitempty"`
}

// Success builds a positive reply carrying text.
func Success(text string) Reply {
	return Reply{Version: ProtocolVersion, OK: true, Text: text}
}

// LoginSuccess builds the reply sent after a successful login.
func LoginSuccess(text string, clientID int64, token string) Reply {
	id := clientID
	return Reply{Version: ProtocolVersion, OK: true, Text: text, ClientID: &id, Token: token}
}

// Failure builds a negative reply from err. Errors outside the taxonomy are
// reported as INTERNAL_ERROR.
func Failure(err error) Reply {
	appErr := appErrors.FromError(err)
	return Reply{Version: ProtocolVersion, OK: false, Text: appErr.Message, Code: appErr.Code}
}

// EncodeReply serialises r to CBOR.
func EncodeReply(r Reply) ([]byte, error) {
	return codec.Marshal(r)
}

// DecodeReply parses a CBOR reply.
func DecodeReply(raw []byte) (Reply, error) {
	var r Reply
	if err := codec.Unmarshal(raw, &r); err != nil {
		return Reply{}, err
	}
	if r.Version != ProtocolVersion {
		return Reply{}, errors.New("dto: unsupported reply version")
	}
	return r, nil
}

// EncodeEnvelope serialises a request envelope, stamping the protocol version.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	env.Version = ProtocolVersion
	return codec.Marshal(env)
}
