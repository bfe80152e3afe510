package network

import (
	"errors"

	"github.com/jlynch25/golang-ticketing/ledger"
	"github.com/jlynch25/golang-ticketing/ticketing"
)

// Error codes carried by resultMessage.
const (
	CodeOK              = ""
	CodeInvalidArgument = "invalid_argument"
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeAlreadyVerified = "already_verified"
	CodeConflict        = "conflict"
	CodeInternal        = "internal"
)

// instructionMessage asks a node to execute an instruction as the sender.
type instructionMessage struct {
	Instruction ticketing.Instruction `cbor:"instruction"`
}

// resultMessage answers an instructionMessage.
type resultMessage struct {
	ID      string           `cbor:"id"`
	Code    string           `cbor:"code,omitempty"`
	Message string           `cbor:"message,omitempty"`
	Result  ticketing.Result `cbor:"result"`
}

func (m instructionMessage) Marshal() []byte {
	return mustMarshal(m)
}

func unmarshalInstructionMessage(buf []byte) (instructionMessage, error) {
	var m instructionMessage
	err := ledger.Unmarshal(buf, &m)
	return m, err
}

func (m resultMessage) Marshal() []byte {
	return mustMarshal(m)
}

func unmarshalResultMessage(buf []byte) (resultMessage, error) {
	var m resultMessage
	err := ledger.Unmarshal(buf, &m)
	return m, err
}

// mustMarshal encodes a message. Messages hold only strings, integers and
// records, so encoding cannot fail.
func mustMarshal(v interface{}) []byte {
	buf, err := ledger.Marshal(v)
	if err != nil {
		panic(err)
	}
	return buf
}

// ErrorCode classifies err for the wire.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ticketing.ErrAlreadyVerified):
		return CodeAlreadyVerified
	case errors.Is(err, ticketing.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ticketing.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ticketing.ErrConflict):
		return CodeConflict
	case errors.Is(err, ticketing.ErrInvalidArgument):
		return CodeInvalidArgument
	}
	return CodeInternal
}

// ErrInternal is returned for remote failures outside the ticketing
// taxonomy.
var ErrInternal = errors.New("remote node failed")

// RemoteError is an error returned by a remote node. It unwraps to the
// ticketing sentinel matching its code.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap function
func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case CodeInvalidArgument:
		return ticketing.ErrInvalidArgument
	case CodeUnauthorized:
		return ticketing.ErrUnauthorized
	case CodeNotFound:
		return ticketing.ErrNotFound
	case CodeAlreadyVerified:
		return ticketing.ErrAlreadyVerified
	case CodeConflict:
		return ticketing.ErrConflict
	}
	return ErrInternal
}

func (m resultMessage) err() error {
	if m.Code == CodeOK {
		return nil
	}
	return &RemoteError{Code: m.Code, Message: m.Message}
}
