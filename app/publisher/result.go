package publisher

import (
	"github.com/lysyi3m/feedpost/app/facebook"
)

type SimulationReason string

const (
	ReasonAppIDMissing  SimulationReason = "app_id_missing"
	ReasonPageIDMissing SimulationReason = "page_id_missing"
	ReasonTokenMissing  SimulationReason = "token_missing"
	ReasonMockToken     SimulationReason = "mock_token"
)

// Post is either a RealPost or a SimulatedPost.
type Post interface {
	PostID() string
	PublicURL() string
}

type RealPost struct {
	ID  string
	URL string
}

func (p RealPost) PostID() string    { return p.ID }
func (p RealPost) PublicURL() string { return p.URL }

// SimulatedPost stands in for a publish that was never sent to Facebook. It has no public URL.
type SimulatedPost struct {
	ID     string
	Reason SimulationReason
}

func (p SimulatedPost) PostID() string    { return p.ID }
func (p SimulatedPost) PublicURL() string { return "" }

type Result struct {
	Post Post
	Err  error
}

func (r Result) OK() bool {
	return r.Err == nil && r.Post != nil
}

// PublishError is a classified Graph failure.
type PublishError struct {
	Kind    facebook.ErrorKind
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	return e.Message
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
