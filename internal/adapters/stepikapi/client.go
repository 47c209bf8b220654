package stepikapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/retry"
)

const (
	DefaultBaseURL   = "https://stepik.org"
	DefaultBatchSize = 50
	userAgent        = "stepik-dl"
)

var ErrNotAuthenticated = errors.New("stepik client not authenticated")

type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// HTTPClient sert à l'échange de token et de transport de base (proxy, timeouts).
	HTTPClient *http.Client
	Retry      retry.Policy
	BatchSize  int
	Logger     zerolog.Logger
}

// Client parle à l'API REST Stepik. Il est partagé en lecture seule
// une fois le token obtenu.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	base         *http.Client
	authed       *http.Client
	policy       retry.Policy
	batch        int
	logger       zerolog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	policy := opts.Retry
	if policy.MaxAttempts <= 0 {
		policy = retry.API()
	}
	if policy.Retryable == nil {
		policy = policy.WithRetryable(isRetryable)
	}
	return &Client{
		baseURL:      baseURL,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		base:         hc,
		policy:       policy,
		batch:        batch,
		logger:       opts.Logger,
	}
}

func (c *Client) tokenConfig() *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		TokenURL:     c.baseURL + "/oauth2/token/",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
}

// Authenticate échange client_id/client_secret contre un bearer token.
// Toute erreur est une *ports.AuthError.
func (c *Client) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	cfg := c.tokenConfig()
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.base)

	tok, err := cfg.Token(tokenCtx)
	if err != nil {
		return nil, &ports.AuthError{Err: err}
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return nil, &ports.AuthError{Err: errors.New("empty access token")}
	}

	// Le rafraîchissement éventuel ne doit pas dépendre du contexte d'appel.
	refreshCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, c.base)
	c.authed = &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(tok, cfg.TokenSource(refreshCtx)),
			Base:   c.base.Transport,
		},
		Timeout: c.base.Timeout,
	}
	c.logger.Debug().Time("expiry", tok.Expiry).Msg("access token acquired")
	return tok, nil
}

type pageMeta struct {
	Page    int  `json:"page"`
	HasNext bool `json:"has_next"`
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "decode response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var se *ports.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var de *decodeError
	if errors.As(err, &de) {
		return false
	}
	return !errors.Is(err, ErrNotAuthenticated)
}

// fetchPage récupère une page de `kind` pour un lot d'ids et renvoie
// les éléments bruts ainsi que les métadonnées de pagination.
func (c *Client) fetchPage(ctx context.Context, kind string, ids []int64, page int) (json.RawMessage, pageMeta, error) {
	q := url.Values{}
	q.Set("ids", joinIDs(ids))
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	endpoint := c.baseURL + "/api/" + kind + "?" + q.Encode()

	var items json.RawMessage
	var meta pageMeta
	attempts, err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		var err error
		items, meta, err = c.getOnce(ctx, kind, endpoint)
		return err
	}, func(attempt int, err error, wait time.Duration) {
		c.logger.Warn().Err(err).Str("kind", kind).Int("attempt", attempt).Dur("wait", wait).Msg("api call failed, retrying")
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, pageMeta{}, ctxErr
		}
		return nil, pageMeta{}, &ports.TransientAPIError{Kind: kind, Attempts: attempts, Err: err}
	}
	return items, meta, nil
}

func (c *Client) getOnce(ctx context.Context, kind, endpoint string) (json.RawMessage, pageMeta, error) {
	if c.authed == nil {
		return nil, pageMeta{}, ErrNotAuthenticated
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pageMeta{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.authed.Do(req)
	if err != nil {
		return nil, pageMeta{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, pageMeta{}, &ports.StatusError{URL: endpoint, Status: resp.StatusCode}
	}

	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pageMeta{}, &decodeError{err: err}
	}
	var meta pageMeta
	if raw, ok := envelope["meta"]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, pageMeta{}, &decodeError{err: err}
		}
	}
	items, ok := envelope[kind]
	if !ok {
		return nil, pageMeta{}, &decodeError{err: fmt.Errorf("missing %q in response", kind)}
	}
	return items, meta, nil
}

// fetch renvoie un enregistrement par id connu de l'API, dans l'ordre des ids.
// Les ids sont groupés par lots de BatchSize; chaque lot suit meta.has_next.
func fetch[T any](ctx context.Context, c *Client, kind string, ids []int64, idOf func(T) int64) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	byID := make(map[int64]T, len(ids))
	for start := 0; start < len(ids); start += c.batch {
		chunk := ids[start:min(start+c.batch, len(ids))]
		for page := 1; ; page++ {
			raw, meta, err := c.fetchPage(ctx, kind, chunk, page)
			if err != nil {
				return nil, err
			}
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, &ports.TransientAPIError{Kind: kind, Attempts: 1, Err: &decodeError{err: err}}
			}
			for _, it := range items {
				byID[idOf(it)] = it
			}
			if !meta.HasNext {
				break
			}
		}
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	if missing := len(ids) - len(out); missing > 0 {
		c.logger.Debug().Str("kind", kind).Int("missing", missing).Msg("api omitted some ids")
	}
	return out, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
