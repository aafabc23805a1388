// Package gmail detects prospect replies by reading the Gmail thread an
// outreach email was sent in.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/outreach-tracker/internal/config"
	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/pkg/httpretry"
	"github.com/ignite/outreach-tracker/internal/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
)

const readonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

// TokenStore persists refreshed OAuth tokens.
type TokenStore interface {
	UpdateGmailToken(ctx context.Context, userID int64, access, refresh string, expiry time.Time) error
}

// ReplyOracle checks Gmail threads for messages from the recipient.
type ReplyOracle struct {
	oauth      *oauth2.Config
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
	tokens     TokenStore
}

type thread struct {
	Messages []struct {
		Payload struct {
			Headers []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"headers"`
		} `json:"payload"`
	} `json:"messages"`
}

func NewReplyOracle(cfg config.GmailConfig, tokens TokenStore) *ReplyOracle {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &ReplyOracle{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{readonlyScope},
			Endpoint:     google.Endpoint,
		},
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: cfg.MaxRetries,
		backoff:    time.Second,
		timeout:    cfg.Timeout(),
		tokens:     tokens,
	}
}

// HasReplied reports whether any message after the first in the record's
// thread comes from the recipient. A record without a thread, an owner
// without Gmail tokens, or a thread Gmail won't return all count as no reply.
func (o *ReplyOracle) HasReplied(ctx context.Context, owner *domain.User, rec *domain.OutreachRecord) (bool, error) {
	recipient := domain.NormalizeEmail(rec.RecipientEmail)
	if rec.ThreadID == "" || recipient == "" {
		return false, nil
	}
	if owner.GmailAccessToken == "" && owner.GmailRefreshToken == "" {
		return false, nil
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	tok := &oauth2.Token{AccessToken: owner.GmailAccessToken, RefreshToken: owner.GmailRefreshToken}
	if owner.GmailTokenExpiry != nil {
		tok.Expiry = *owner.GmailTokenExpiry
	}
	ts := oauth2.ReuseTokenSource(tok, o.oauth.TokenSource(ctx, tok))
	client := httpretry.NewRetryClient(oauth2.NewClient(ctx, ts), o.maxRetries).WithBackoff(o.backoff, 10*o.backoff)

	if err := o.limiter.Wait(ctx); err != nil {
		return false, err
	}

	u := fmt.Sprintf("%s/gmail/v1/users/me/threads/%s?format=full", o.baseURL, url.PathEscape(rec.ThreadID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("gmail thread %s: %w", rec.ThreadID, err)
	}
	defer resp.Body.Close()

	o.saveRefreshed(ctx, owner, tok, ts)

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		logger.Debug("gmail thread unreadable", "record_id", rec.ID, "status", resp.StatusCode)
		return false, nil
	}

	var th thread
	if err := json.NewDecoder(resp.Body).Decode(&th); err != nil {
		return false, fmt.Errorf("decode gmail thread: %w", err)
	}
	if len(th.Messages) < 2 {
		return false, nil
	}
	for _, msg := range th.Messages[1:] {
		for _, h := range msg.Payload.Headers {
			if strings.EqualFold(h.Name, "from") {
				if strings.Contains(strings.ToLower(h.Value), recipient) {
					return true, nil
				}
				break
			}
		}
	}
	return false, nil
}

func (o *ReplyOracle) saveRefreshed(ctx context.Context, owner *domain.User, old *oauth2.Token, ts oauth2.TokenSource) {
	if o.tokens == nil {
		return
	}
	cur, err := ts.Token()
	if err != nil || cur.AccessToken == old.AccessToken {
		return
	}
	if err := o.tokens.UpdateGmailToken(ctx, owner.ID, cur.AccessToken, cur.RefreshToken, cur.Expiry); err != nil {
		logger.Warn("saving refreshed gmail token failed", "user_id", owner.ID, "error", err)
	}
}
