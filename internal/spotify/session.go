package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	httpx "github.com/handiism/spotify-downloader/internal/http"
	"github.com/handiism/spotify-downloader/internal/spotify/dto"
)

const (
	clientVersion = "1.2.70.61.g856ccd63"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"

	// Registered client id of the device pairing flow. The pairing
	// endpoints expect a desktop client, so its requests carry the full
	// desktop scope list and a desktop user agent instead of the
	// browser identity used everywhere else.
	deviceClientID  = "65b708073fc0480ea92a077233ca87bd"
	deviceUserAgent = "Spotify/126600447 Win32_x86_64/0 (PC laptop)"
	deviceScope     = "app-remote-control,playlist-modify,playlist-modify-private,playlist-modify-public," +
		"playlist-read,playlist-read-collaborative,playlist-read-private,streaming,transfer-auth-session," +
		"ugc-image-upload,user-follow-modify,user-follow-read,user-library-modify,user-library-read," +
		"user-modify,user-modify-playback-state,user-modify-private,user-personalized,user-read-birthdate," +
		"user-read-currently-playing,user-read-email,user-read-play-history,user-read-playback-position," +
		"user-read-playback-state,user-read-private,user-read-recently-played,user-top-read"
)

// Endpoints holds every service URL the client talks to. Tests point the
// fields at httptest servers; zero-value fields fall back to the values
// from DefaultEndpoints.
type Endpoints struct {
	ServerTime      string
	SessionToken    string
	ClientToken     string
	DeviceAuthorize string
	PairResolve     string
	DeviceToken     string

	// Format strings taking the GID or file id.
	TrackMetadata   string
	EpisodeMetadata string
	VideoManifest   string
	SeekTable       string
	StorageResolve  string
	WidevineLicense string
	PlayPlayLicense string
}

// DefaultEndpoints returns the production service URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		ServerTime:      "https://open.spotify.com/api/server-time",
		SessionToken:    "https://open.spotify.com/api/token",
		ClientToken:     "https://clienttoken.spotify.com/v1/clienttoken",
		DeviceAuthorize: "https://accounts.spotify.com/oauth2/device/authorize",
		PairResolve:     "https://accounts.spotify.com/pair/api/resolve",
		DeviceToken:     "https://accounts.spotify.com/api/token",
		TrackMetadata:   "https://spclient.wg.spotify.com/metadata/4/track/%s?market=from_token",
		EpisodeMetadata: "https://spclient.wg.spotify.com/metadata/4/episode/%s?market=from_token",
		VideoManifest:   "https://spclient.wg.spotify.com/manifests/v7/json/sources/%s/options/supports_drm",
		SeekTable:       "https://seektables.scdn.co/seektable/%s.json",
		StorageResolve:  "https://spclient.wg.spotify.com/storage-resolve/files/audio/interactive/%s?alt=json",
		WidevineLicense: "https://spclient.wg.spotify.com/widevine-license/v1/%s/license",
		PlayPlayLicense: "https://spclient.wg.spotify.com/playplay/v1/key/%s",
	}
}

func (e *Endpoints) applyDefaults() {
	defaults := DefaultEndpoints()
	if e.ServerTime == "" {
		e.ServerTime = defaults.ServerTime
	}
	if e.SessionToken == "" {
		e.SessionToken = defaults.SessionToken
	}
	if e.ClientToken == "" {
		e.ClientToken = defaults.ClientToken
	}
	if e.DeviceAuthorize == "" {
		e.DeviceAuthorize = defaults.DeviceAuthorize
	}
	if e.PairResolve == "" {
		e.PairResolve = defaults.PairResolve
	}
	if e.DeviceToken == "" {
		e.DeviceToken = defaults.DeviceToken
	}
	if e.TrackMetadata == "" {
		e.TrackMetadata = defaults.TrackMetadata
	}
	if e.EpisodeMetadata == "" {
		e.EpisodeMetadata = defaults.EpisodeMetadata
	}
	if e.VideoManifest == "" {
		e.VideoManifest = defaults.VideoManifest
	}
	if e.SeekTable == "" {
		e.SeekTable = defaults.SeekTable
	}
	if e.StorageResolve == "" {
		e.StorageResolve = defaults.StorageResolve
	}
	if e.WidevineLicense == "" {
		e.WidevineLicense = defaults.WidevineLicense
	}
	if e.PlayPlayLicense == "" {
		e.PlayPlayLicense = defaults.PlayPlayLicense
	}
}

// AuthError reports an authentication failure. Authentication failures
// are fatal to a run; callers stop instead of retrying per item.
type AuthError struct {
	// Stage names the step that failed.
	Stage string

	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed during %s: %v", e.Stage, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// session is the authorized state the client holds between refreshes.
type session struct {
	accessToken string
	clientToken string
	expiresAtMs int64
}

// Options configures a Client.
type Options struct {
	// SPDC is the account cookie. Required for member-gated media; the
	// device pairing fallback also relies on it to approve the pairing.
	SPDC string

	// Registry supplies code-generation secrets. Nil means the default
	// web registry.
	Registry SecretRegistry

	// Endpoints overrides service URLs. Zero-value fields keep defaults.
	Endpoints Endpoints

	// Now is the clock used for expiry checks and pairing timestamps.
	// Nil means time.Now.
	Now func() time.Time
}

// Client is an authenticated service client. Authentication is lazy: the
// first authorized call acquires tokens, and every later call checks the
// token expiry first and refreshes when the session has lapsed.
type Client struct {
	http      *httpx.Client
	endpoints Endpoints
	registry  SecretRegistry
	now       func() time.Time

	mu      sync.Mutex
	session *session
}

// NewClient creates a client from opts. No network traffic happens until
// the first authorized call.
func NewClient(opts Options) *Client {
	opts.Endpoints.applyDefaults()
	if opts.Registry == nil {
		opts.Registry = &WebSecretRegistry{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	client := httpx.NewClient()
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("App-Platform", "WebPlayer")
	client.SetHeader("Spotify-App-Version", clientVersion)
	if opts.SPDC != "" {
		client.SetCookie("sp_dc", opts.SPDC)
	}

	return &Client{
		http:      client,
		endpoints: opts.Endpoints,
		registry:  opts.Registry,
		now:       opts.Now,
	}
}

// ensureAuthorized refreshes the session when it is missing or expired.
// The expiry is exclusive: a session is stale the instant now equals it.
func (c *Client) ensureAuthorized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	nowMs := c.now().UnixMilli()
	if c.session != nil && nowMs < c.session.expiresAtMs {
		return nil
	}

	sess, err := c.authorize(ctx)
	if err != nil {
		return err
	}
	c.session = sess
	c.http.SetHeader("Authorization", "Bearer "+sess.accessToken)
	if sess.clientToken != "" {
		c.http.SetHeader("Client-Token", sess.clientToken)
	}
	return nil
}

// authorize runs the code-based token flow and falls back to device
// pairing when that fails. Both failing is fatal.
func (c *Client) authorize(ctx context.Context) (*session, error) {
	sess, codeErr := c.authorizeWithCode(ctx)
	if codeErr == nil {
		return sess, nil
	}

	sess, deviceErr := c.authorizeWithDevice(ctx)
	if deviceErr == nil {
		return sess, nil
	}
	return nil, &AuthError{
		Stage: "token acquisition",
		Err:   fmt.Errorf("code flow: %v; device flow: %w", codeErr, deviceErr),
	}
}

// authorizeWithCode obtains a session token using a one-time code derived
// from the server clock, then exchanges it for a client token.
func (c *Client) authorizeWithCode(ctx context.Context) (*session, error) {
	secret, err := c.registry.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching secrets: %w", err)
	}
	authenticator := NewAuthenticator(secret)

	var serverTime dto.ServerTime
	if err := c.http.GetJSON(ctx, "server time", c.endpoints.ServerTime, nil, &serverTime); err != nil {
		return nil, err
	}
	serverTimeMs := serverTime.ServerTime * 1000
	code := authenticator.Generate(serverTimeMs)

	query := url.Values{
		"reason":      {"init"},
		"productType": {"web-player"},
		"totp":        {code},
		"totpServer":  {code},
		"totpVer":     {strconv.Itoa(authenticator.Version)},
	}
	var token dto.SessionToken
	if err := c.http.GetJSON(ctx, "session token", c.endpoints.SessionToken, query, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("session token response carried no access token")
	}

	clientToken, err := c.exchangeClientToken(ctx, token.ClientID)
	if err != nil {
		return nil, err
	}
	return &session{
		accessToken: token.AccessToken,
		clientToken: clientToken,
		expiresAtMs: token.AccessTokenExpirationTimestampMs,
	}, nil
}

// exchangeClientToken trades the session client id for a client token.
func (c *Client) exchangeClientToken(ctx context.Context, clientID string) (string, error) {
	payload := dto.ClientTokenRequest{}
	payload.ClientData.ClientVersion = clientVersion
	payload.ClientData.ClientID = clientID

	var token dto.ClientToken
	extra := http.Header{}
	extra.Set("Accept", "application/json")
	if err := c.http.PostJSON(ctx, "client token", c.endpoints.ClientToken, nil, payload, &token, extra); err != nil {
		return "", err
	}
	if token.GrantedToken.Token == "" {
		return "", fmt.Errorf("client token response carried no granted token")
	}
	return token.GrantedToken.Token, nil
}

var pageStatePattern = regexp.MustCompile(`(?s)<script id="__NEXT_DATA__"[^>]*>(.*?)</script>`)

// authorizeWithDevice runs the device pairing flow: request a device
// code, load the verification page to recover the pairing context and
// the page token, resolve the pairing, then exchange the device code.
func (c *Client) authorizeWithDevice(ctx context.Context) (*session, error) {
	deviceHeader := http.Header{}
	deviceHeader.Set("User-Agent", deviceUserAgent)

	form := url.Values{
		"client_id": {deviceClientID},
		"scope":     {deviceScope},
	}
	var auth dto.DeviceAuthorization
	if err := c.http.PostForm(ctx, "device authorize", c.endpoints.DeviceAuthorize, form, &auth, deviceHeader); err != nil {
		return nil, err
	}

	finalURL, page, err := c.http.GetPage(ctx, "device verification", auth.VerificationURIComplete)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(finalURL)
	if err != nil {
		return nil, err
	}
	flowCtx := parsed.Query().Get("flow_ctx")
	if flowCtx == "" {
		return nil, fmt.Errorf("verification page carried no flow context")
	}
	flowCtx = strings.SplitN(flowCtx, ":", 2)[0]

	match := pageStatePattern.FindSubmatch(page)
	if match == nil {
		return nil, fmt.Errorf("verification page carried no embedded state")
	}
	var state dto.PageState
	if err := json.Unmarshal(match[1], &state); err != nil {
		return nil, fmt.Errorf("parsing verification page state: %w", err)
	}
	if state.Props.InitialToken == "" {
		return nil, fmt.Errorf("verification page state carried no token")
	}

	resolveQuery := url.Values{
		"flow_ctx": {fmt.Sprintf("%s:%d", flowCtx, c.now().Unix())},
	}
	extra := http.Header{}
	extra.Set("X-CSRF-Token", state.Props.InitialToken)
	var result dto.PairResolveResult
	payload := map[string]string{"code": auth.UserCode}
	if err := c.http.PostJSON(ctx, "device pairing", c.endpoints.PairResolve, resolveQuery, payload, &result, extra); err != nil {
		return nil, err
	}
	if result.Result != "ok" {
		return nil, fmt.Errorf("device pairing was not accepted: %q", result.Result)
	}

	tokenForm := url.Values{
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"client_id":   {deviceClientID},
		"device_code": {auth.DeviceCode},
	}
	var token dto.DeviceToken
	if err := c.http.PostForm(ctx, "device token", c.endpoints.DeviceToken, tokenForm, &token, deviceHeader); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("device token response carried no access token")
	}

	clientToken, err := c.exchangeClientToken(ctx, deviceClientID)
	if err != nil {
		return nil, err
	}
	return &session{
		accessToken: token.AccessToken,
		clientToken: clientToken,
		expiresAtMs: c.now().UnixMilli() + token.ExpiresIn*1000,
	}, nil
}
