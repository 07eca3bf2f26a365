package model

type (
	// Speaker identifies one of the two sides of a conversation.
	Speaker string

	// Message is one entry of a conversation. Content always holds the
	// disguised text that travels over the wire. DecryptedContent is only
	// meaningful when Decrypted is set; an unset pair means no key has
	// managed to resolve this message yet. Fingerprint tags the message
	// with a one-way derivative of the key that last touched it, so a
	// later pass can recognize "already handled" without the key itself.
	Message struct {
		Speaker          Speaker `json:"speaker" bson:"speaker"`
		Content          string  `json:"content" bson:"content"`
		DecryptedContent string  `json:"decrypted_content,omitempty" bson:"decrypted_content,omitempty"`
		Decrypted        bool    `json:"decrypted,omitempty" bson:"decrypted,omitempty"`
		Fingerprint      []byte  `json:"fingerprint,omitempty" bson:"fingerprint,omitempty"`
	}
)

const (
	SpeakerA Speaker = "A"
	SpeakerB Speaker = "B"
)

// Tag renders the speaker marker used in model context, e.g. "- A:".
func (s Speaker) Tag() string {
	return "- " + string(s) + ":"
}

func NewMessage(speaker Speaker, content string) Message {
	return Message{
		Speaker: speaker,
		Content: content,
	}
}

// WithDecrypted derives a copy carrying a successful decryption result.
func (m Message) WithDecrypted(plaintext string, fingerprint []byte) Message {
	out := m
	out.DecryptedContent = plaintext
	out.Decrypted = true
	out.Fingerprint = append([]byte(nil), fingerprint...)
	return out
}

// WithFingerprint derives a copy marking a failed decryption attempt under
// the key identified by fingerprint. DecryptedContent stays absent.
func (m Message) WithFingerprint(fingerprint []byte) Message {
	out := m
	out.DecryptedContent = ""
	out.Decrypted = false
	out.Fingerprint = append([]byte(nil), fingerprint...)
	return out
}

// Resolved returns the plaintext this message contributes to later context:
// the decrypted content when available, the raw content otherwise (a message
// that was never produced by the pipeline is treated as plain chat).
func (m Message) Resolved() string {
	if m.Decrypted {
		return m.DecryptedContent
	}
	return m.Content
}
