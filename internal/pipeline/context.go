package pipeline

import (
	"strings"

	"stegochat/internal/codec"
	"stegochat/internal/model"
)

// BuildContext renders conversation history into the canonical text the
// model conditions on: one "- X: content\n" line per prior message, then the
// bare tag for the message being coded. History must already be resolved:
// lines carry prior plaintext, never disguised ciphertext, which is why
// decryption within a conversation is strictly sequential.
func BuildContext(history []model.Message, next model.Speaker) string {
	var b strings.Builder
	for _, m := range history {
		b.WriteString(m.Speaker.Tag())
		b.WriteByte(' ')
		b.WriteString(m.Resolved())
		b.WriteString(codec.EndOfMessage)
	}
	b.WriteString(next.Tag())
	return b.String()
}
