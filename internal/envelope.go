package internal

import (
	"encoding/json"
	"net/http"
)

// DefaultSuccessMessage is the message of every successful envelope.
const DefaultSuccessMessage = "success"

const contentTypeJSON = "application/json"

// Envelope is the uniform response wrapper.
type Envelope struct {
	Payload any    `json:"payload"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// WriteEnvelope serializes an envelope with the given status as both the
// HTTP status code and the envelope status.
func WriteEnvelope(w http.ResponseWriter, status int, message string, payload any) error {
	data, err := json.Marshal(Envelope{Status: status, Message: message, Payload: payload})
	if err != nil {
		return err
	}
	return writeJSONBytes(w, status, data)
}

// WriteSuccess writes a 200 envelope with the default message.
func WriteSuccess(w http.ResponseWriter, payload any) error {
	return WriteEnvelope(w, http.StatusOK, DefaultSuccessMessage, payload)
}

// WriteError classifies err and writes it as an envelope with an empty payload.
func WriteError(w http.ResponseWriter, err error) error {
	e := Classify(err)
	return WriteEnvelope(w, e.Status, e.Message, []any{})
}

// WriteRaw writes a method result verbatim without an envelope.
// Byte slices and strings are written as is, anything else is JSON encoded.
func WriteRaw(w http.ResponseWriter, v any) error {
	var data []byte
	switch body := v.(type) {
	case nil:
	case []byte:
		data = body
	case string:
		data = []byte(body)
	case json.RawMessage:
		data = body
	default:
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		data = b
	}
	return writeJSONBytes(w, http.StatusOK, data)
}

func writeJSONBytes(w http.ResponseWriter, status int, data []byte) error {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, err := w.Write(data)
	return err
}
