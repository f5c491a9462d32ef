package drm

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"41.neocities.org/drm/widevine"
	"41.neocities.org/sofia"

	httpx "github.com/handiism/spotify-downloader/internal/http"
)

// RemoteCDM proxies license sessions to a remote CDM service, for setups
// without local device files. It is a drop-in substitute for DeviceCDM
// and nothing else in the pipeline changes.
type RemoteCDM struct {
	// URL is the base URL of the service.
	URL string

	// Device names the provisioned device the service should use.
	Device string

	// Secret authenticates against the service, if it requires one.
	Secret string

	client *httpx.Client
}

// NewRemoteCDM creates a proxy client for the given service.
func NewRemoteCDM(url, device, secret string) *RemoteCDM {
	client := httpx.NewClient()
	if secret != "" {
		client.SetHeader("X-Secret-Key", secret)
	}
	return &RemoteCDM{
		URL:    strings.TrimRight(url, "/"),
		Device: device,
		Secret: secret,
		client: client,
	}
}

func (c *RemoteCDM) endpoint(parts ...string) string {
	return c.URL + "/" + c.Device + "/" + strings.Join(parts, "/")
}

// NewSession implements CDM by opening a session on the remote service.
func (c *RemoteCDM) NewSession(ctx context.Context, initData []byte) (Session, error) {
	var box sofia.PsshBox
	if err := box.Parse(initData); err != nil {
		return nil, &LicenseError{Stage: "init data parsing", Err: err}
	}
	var pssh widevine.PsshData
	if err := pssh.Unmarshal(box.Data); err != nil {
		return nil, &LicenseError{Stage: "init data parsing", Err: err}
	}
	if len(pssh.KeyIds) == 0 {
		return nil, &LicenseError{Stage: "init data parsing", Err: fmt.Errorf("init data carries no key ids")}
	}

	var opened struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	if err := c.client.PostJSON(ctx, "remote session open", c.endpoint("open"), nil, struct{}{}, &opened, nil); err != nil {
		return nil, &LicenseError{Stage: "remote session open", Err: err}
	}
	return &remoteSession{
		cdm:       c,
		sessionID: opened.Data.SessionID,
		initData:  initData,
		keyID:     pssh.KeyIds[0],
	}, nil
}

type remoteSession struct {
	cdm       *RemoteCDM
	sessionID string
	initData  []byte
	keyID     []byte
	key       []byte
	closed    bool
}

func (s *remoteSession) Challenge(ctx context.Context) ([]byte, error) {
	if s.closed {
		return nil, &LicenseError{Stage: "challenge", Err: fmt.Errorf("session is closed")}
	}
	payload := map[string]any{
		"session_id":   s.sessionID,
		"init_data":    base64.StdEncoding.EncodeToString(s.initData),
		"privacy_mode": false,
	}
	var response struct {
		Data struct {
			ChallengeB64 string `json:"challenge_b64"`
		} `json:"data"`
	}
	endpoint := s.cdm.endpoint("get_license_challenge", "STREAMING")
	if err := s.cdm.client.PostJSON(ctx, "remote challenge", endpoint, nil, payload, &response, nil); err != nil {
		return nil, &LicenseError{Stage: "challenge", Err: err}
	}
	challenge, err := base64.StdEncoding.DecodeString(response.Data.ChallengeB64)
	if err != nil {
		return nil, &LicenseError{Stage: "challenge", Err: err}
	}
	return challenge, nil
}

func (s *remoteSession) ParseLicense(ctx context.Context, response []byte) error {
	if s.closed {
		return &LicenseError{Stage: "license parsing", Err: fmt.Errorf("session is closed")}
	}
	payload := map[string]any{
		"session_id":      s.sessionID,
		"license_message": base64.StdEncoding.EncodeToString(response),
	}
	endpoint := s.cdm.endpoint("parse_license")
	if err := s.cdm.client.PostJSON(ctx, "remote license parsing", endpoint, nil, payload, nil, nil); err != nil {
		return &LicenseError{Stage: "license parsing", Err: err}
	}

	var keys struct {
		Data struct {
			Keys []struct {
				KeyID string `json:"key_id"`
				Key   string `json:"key"`
			} `json:"keys"`
		} `json:"data"`
	}
	endpoint = s.cdm.endpoint("get_keys", "CONTENT")
	if err := s.cdm.client.PostJSON(ctx, "remote key fetch", endpoint, nil, map[string]any{"session_id": s.sessionID}, &keys, nil); err != nil {
		return &LicenseError{Stage: "key selection", Err: err}
	}
	wantID := hex.EncodeToString(s.keyID)
	for _, k := range keys.Data.Keys {
		if strings.ReplaceAll(k.KeyID, "-", "") != wantID && len(keys.Data.Keys) > 1 {
			continue
		}
		key, err := hex.DecodeString(k.Key)
		if err != nil {
			return &LicenseError{Stage: "key selection", Err: err}
		}
		s.key = key
		return nil
	}
	return &LicenseError{Stage: "key selection", Err: fmt.Errorf("key %s not in license", wantID)}
}

func (s *remoteSession) ContentKey() ([]byte, error) {
	if s.key == nil {
		return nil, &LicenseError{Stage: "key selection", Err: fmt.Errorf("no license was parsed")}
	}
	key := make([]byte, len(s.key))
	copy(key, s.key)
	return key, nil
}

func (s *remoteSession) KeyID() []byte {
	return s.keyID
}

func (s *remoteSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
	_, err := s.cdm.client.Do(ctx, "remote session close", "GET", s.cdm.endpoint("close", s.sessionID), nil, nil, nil)
	return err
}
