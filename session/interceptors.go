package session

import (
	"log/slog"
	"net/http"

	"github.com/shelfdesk/shelfadmin/apiclient"
	"github.com/shelfdesk/shelfadmin/credential"
)

// TokenSource yields the current credential, "" when there is none.
type TokenSource interface {
	Token() (string, error)
}

// Terminator tears the session down. Implementations must be idempotent and
// safe for concurrent use.
type Terminator interface {
	Teardown(reason Reason)
}

// AttachCredential returns a pre-send hook that sets
// "Authorization: Bearer <token>". A missing or unreadable token lets the
// request go out unauthenticated. When inspector is non-nil, tokens it
// reports as expired are withheld. The hook never fails.
func AttachCredential(tokens TokenSource, inspector *credential.Inspector, logger *slog.Logger) apiclient.RequestHook {
	if logger == nil {
		logger = slog.Default()
	}
	return func(req *http.Request) error {
		token, err := tokens.Token()
		if err != nil {
			logger.Warn("credential unreadable, sending request unauthenticated",
				"path", req.URL.Path,
				"error", err,
			)
			return nil
		}
		if token == "" {
			return nil
		}
		if inspector != nil && inspector.IsExpired(token) {
			logger.Debug("withholding expired credential", "path", req.URL.Path)
			return nil
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// TeardownOnUnauthorized returns a post-receive hook that calls
// t.Teardown(ReasonUnauthorized) once for every 401 response and then hands
// the original error back unchanged.
func TeardownOnUnauthorized(t Terminator) apiclient.ResponseHook {
	return func(_ *http.Request, resp *apiclient.Response, err error) error {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			t.Teardown(ReasonUnauthorized)
		}
		return err
	}
}
