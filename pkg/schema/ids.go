package schema

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// idAlphabet is the character set for generated identifiers. Lowercase
// alphanumerics only, so ids survive case-insensitive transports.
const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Identifier prefixes disambiguate the class of a leaked id: an API key
// found in a log line is recognizable as an API key and nothing else.
const (
	userIDPrefix    = "u_"
	sessionIDPrefix = "s_"
	apiKeyPrefix    = "sn4_"
	organicIDPrefix = "oreq_"
)

const (
	userIDLength    = 30
	sessionIDLength = 30
	apiKeyLength    = 28
	organicIDLength = 27
)

// NewUserID returns a new user identifier.
func NewUserID() string { return userIDPrefix + randomString(userIDLength) }

// NewSessionID returns a new session identifier.
func NewSessionID() string { return sessionIDPrefix + randomString(sessionIDLength) }

// NewAPIKey returns a new opaque API key. 28 characters over a 36-character
// alphabet gives ~144 bits, enough to make brute-force guessing infeasible.
func NewAPIKey() string { return apiKeyPrefix + randomString(apiKeyLength) }

// NewOrganicRequestID returns a new public id for an organic request.
func NewOrganicRequestID() string { return organicIDPrefix + randomString(organicIDLength) }

// randomString returns n characters drawn uniformly from idAlphabet.
func randomString(n int) string {
	s, err := gonanoid.Generate(idAlphabet, n)
	if err != nil {
		// crypto/rand never fails on supported platforms
		panic("schema: generating id: " + err.Error())
	}
	return s
}
