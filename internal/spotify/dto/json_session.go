package dto

// ServerTime is the response of the server-time endpoint. The value is in
// seconds; callers scale it to milliseconds before deriving codes.
type ServerTime struct {
	ServerTime int64 `json:"serverTime"`
}

// SessionToken is the response of the session-token endpoint.
type SessionToken struct {
	ClientID                         string `json:"clientId"`
	AccessToken                      string `json:"accessToken"`
	AccessTokenExpirationTimestampMs int64  `json:"accessTokenExpirationTimestampMs"`
}

// ClientTokenRequest is the payload of the client-token exchange.
type ClientTokenRequest struct {
	ClientData ClientData `json:"client_data"`
}

// ClientData identifies the client requesting a client-scoped token.
type ClientData struct {
	ClientVersion string   `json:"client_version"`
	ClientID      string   `json:"client_id"`
	JsSdkData     struct{} `json:"js_sdk_data"`
}

// ClientToken is the response of the client-token exchange.
type ClientToken struct {
	GrantedToken struct {
		Token string `json:"token"`
	} `json:"granted_token"`
}

// DeviceAuthorization is the response of the device-authorization endpoint.
type DeviceAuthorization struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURIComplete string `json:"verification_uri_complete"`
}

// PairResolveResult is the response of the device-pairing-resolve endpoint.
type PairResolveResult struct {
	Result string `json:"result"`
}

// DeviceToken is the response of the device-token exchange.
type DeviceToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// PageState is the page-embedded state JSON of the device verification
// page. Only the CSRF-equivalent token is needed.
type PageState struct {
	Props struct {
		InitialToken string `json:"initialToken"`
	} `json:"props"`
}
