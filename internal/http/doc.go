// Package http provides an HTTP client configured for the streaming
// service's web API.
//
// The Client in this package handles:
//   - Browser-equivalent request headers the service expects
//   - JSON request/response bodies
//   - File downloads with progress tracking
//   - Uniform non-success reporting via RequestError
//
// # Basic Usage
//
//	client := http.NewClient()
//
//	var serverTime struct{ ServerTime int64 `json:"serverTime"` }
//	err := client.GetJSON(ctx, "server time", timeURL, nil, &serverTime)
//
//	// Download file with progress callback
//	client.DownloadFile(ctx, streamURL, "/tmp/item_encrypted.ogg", func(written, total int64) {
//	    fmt.Printf("%.1f%%\n", float64(written)/float64(total)*100)
//	})
//
// # Error Reporting
//
// Every non-2xx response is reported as a *RequestError carrying the
// endpoint name, status code and raw body. Requests are never retried
// here; callers decide what a failure means for their item.
package http
