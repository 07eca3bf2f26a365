package codec

import (
	"fmt"

	"stegochat/internal/lm"
)

type (
	// DecodingFaultError reports that a byte stream did not terminate in a
	// valid symbol sequence under the entropy coder. It is the recoverable
	// signal for malformed or garbage input; a wrong decryption key yields
	// effectively random bytes and lands here with high probability.
	DecodingFaultError struct {
		Reason string
	}

	// TokenError reports that an observed token was not a member of the
	// restricted candidate set at its step, or that the text violates the
	// generative coder's framing. It is the designed signal that the text
	// was not produced by Encode under this context and configuration.
	TokenError struct {
		Position int
		Token    lm.Token
		Reason   string
	}
)

func (e *DecodingFaultError) Error() string {
	return fmt.Sprintf("decoding fault: %s", e.Reason)
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token error at position %d (token %d): %s", e.Position, e.Token, e.Reason)
}
