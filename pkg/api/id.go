package api

import (
	"regexp"

	"github.com/google/uuid"
)

const responseIDPrefix = "resp_"

var responseIDPattern = regexp.MustCompile(`^resp_[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// NewResponseID generates a response ID for backends that do not assign
// one: "resp_" followed by a random (version 4) UUID. The ID has no
// stability across calls.
func NewResponseID() string {
	return responseIDPrefix + uuid.NewString()
}

// ValidateResponseID checks whether id was produced by NewResponseID.
func ValidateResponseID(id string) bool {
	return responseIDPattern.MatchString(id)
}
