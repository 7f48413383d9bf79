package facebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GraphError is the error object the Graph API returns in its response envelope.
type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`
	HTTPStatus   int    `json:"-"`
}

func (e *GraphError) Error() string {
	if e.ErrorSubcode != 0 {
		return fmt.Sprintf("%s (code %d, subcode %d)", e.Message, e.Code, e.ErrorSubcode)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func parseGraphError(data []byte, status int) *GraphError {
	var envelope struct {
		Error *GraphError `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == nil {
		return nil
	}
	envelope.Error.HTTPStatus = status
	return envelope.Error
}

type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindToken
	KindPermission
	KindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindPermission:
		return "permission"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "other"
	}
}

// NeedsReconnect reports whether the page has to go through the OAuth flow again.
func (k ErrorKind) NeedsReconnect() bool {
	return k == KindToken || k == KindPermission
}

// Token codes and subcodes from the Graph API error reference.
var tokenCodes = map[int]bool{190: true, 102: true, 463: true, 467: true}

var rateLimitCodes = map[int]bool{4: true, 17: true, 32: true, 613: true}

// Matched only when no structured code is available. Best effort: the Graph
// API does not guarantee message wording.
var (
	tokenPhrases = []string{
		"session has expired",
		"invalid oauth access token",
		"error validating access token",
	}
	permissionPhrases = []string{
		"permissions error",
		"does not have permission",
	}
)

// Classify maps an error to an ErrorKind, preferring the Graph code fields
// over message text.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}

	var graphErr *GraphError
	if errors.As(err, &graphErr) {
		switch {
		case tokenCodes[graphErr.Code], tokenCodes[graphErr.ErrorSubcode]:
			return KindToken
		case rateLimitCodes[graphErr.Code]:
			return KindRateLimit
		case graphErr.Code == 10, graphErr.Code >= 200 && graphErr.Code <= 299:
			return KindPermission
		}
		// Most Graph errors carry type OAuthException, so the type alone says nothing.
		return classifyMessage(graphErr.Message)
	}

	return classifyMessage(err.Error())
}

func classifyMessage(msg string) ErrorKind {
	msg = strings.ToLower(msg)
	for _, phrase := range tokenPhrases {
		if strings.Contains(msg, phrase) {
			return KindToken
		}
	}
	for _, phrase := range permissionPhrases {
		if strings.Contains(msg, phrase) {
			return KindPermission
		}
	}
	return KindOther
}

// Detail returns the provider message of a Graph error, or the error text otherwise.
func Detail(err error) string {
	var graphErr *GraphError
	if errors.As(err, &graphErr) && graphErr.Message != "" {
		return graphErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
