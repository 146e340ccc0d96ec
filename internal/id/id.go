package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const ReviewPrefix = "rev"

// Generate returns prefix-nanoid, e.g. "rev-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}
