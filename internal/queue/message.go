package queue

import "encoding/json"

// Event names carried in Message.Name. Upload and re-run both trigger the
// same processing pipeline.
const (
	EventResumeUploaded = "resume/uploaded"
	EventResumeRerun    = "resume/rerun"
)

// MessageVersion is the current payload version.
const MessageVersion = 1

// Message is the payload sent to the worker for one pipeline run.
type Message struct {
	Name       string `json:"name"`
	ResumeID   string `json:"resumeId"`
	OwnerID    string `json:"ownerId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
