package platform

import (
	"context"

	"github.com/mxteam/mediabot/internal/domain"
)

// unconfiguredClient is the factory default when no platform client build is
// linked in. Every call reports a classified transient failure, so the rest
// of the system degrades to its fallback paths instead of panicking.
type unconfiguredClient struct{}

// NewUnconfiguredClient returns a client that refuses every operation.
func NewUnconfiguredClient() Client {
	return unconfiguredClient{}
}

func (unconfiguredClient) err() error {
	return &Error{Kind: KindTransient, Message: "no platform client configured"}
}

func (c unconfiguredClient) Login(context.Context, Credentials) error { return c.err() }

func (c unconfiguredClient) ResumeChallenge(context.Context, string, string) error { return c.err() }

func (c unconfiguredClient) ImportSession([]byte) error { return c.err() }

func (c unconfiguredClient) ExportSession() ([]byte, error) { return nil, c.err() }

func (c unconfiguredClient) Validate(context.Context) error { return c.err() }

func (c unconfiguredClient) DirectMessagesFrom(context.Context, string, int) ([]DirectMessage, error) {
	return nil, c.err()
}

func (c unconfiguredClient) MediaInfo(context.Context, domain.ContentRef) (*MediaInfo, error) {
	return nil, c.err()
}

func (c unconfiguredClient) DownloadResource(context.Context, MediaResource, string) (string, error) {
	return "", c.err()
}
