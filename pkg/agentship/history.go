package agentship

import (
	"encoding/json"

	"github.com/agentship/agentship/internal/message"
)

// historyEnvelope is the on-disk shape of one persisted message: role plus
// the type-tagged Parts encoding internal/message already defines for
// round-tripping its heterogeneous content-block union.
type historyEnvelope struct {
	Role  string          `json:"role"`
	Parts json.RawMessage `json:"parts"`
}

// marshalHistory serializes a conversation's messages (without the system
// prompt, which is rebuilt fresh from config every turn rather than
// persisted) into the checkpointer's opaque state blob.
func marshalHistory(msgs []message.Message) ([]byte, error) {
	envelopes := make([]historyEnvelope, 0, len(msgs))
	for _, m := range msgs {
		parts, err := message.MarshalParts(m.Parts)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, historyEnvelope{Role: string(m.Role), Parts: parts})
	}
	return json.Marshal(envelopes)
}

// unmarshalHistory is marshalHistory's inverse.
func unmarshalHistory(data []byte) ([]message.Message, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var envelopes []historyEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, err
	}
	out := make([]message.Message, 0, len(envelopes))
	for _, e := range envelopes {
		parts, err := message.UnmarshalParts(e.Parts)
		if err != nil {
			return nil, err
		}
		out = append(out, message.Message{Role: message.MessageRole(e.Role), Parts: parts})
	}
	return out, nil
}
