package shortener

import "github.com/jaevor/go-nanoid"

// CodeGenerator generates candidate short codes. Candidates are not
// guaranteed unique; the service retries on collision.
type CodeGenerator func() string

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewCodeGenerator returns a generator of lowercase alphanumeric codes of the given length.
func NewCodeGenerator(length int) (CodeGenerator, error) {
	gen, err := nanoid.CustomASCII(base36Alphabet, length)
	if err != nil {
		return nil, err
	}

	return CodeGenerator(gen), nil
}
