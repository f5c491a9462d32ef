// Package segment downloads stream payloads.
//
// Single-URL streams go through DownloadFile, either with the integrated
// client or an external accelerator configured by path; both produce
// byte-identical files. Segmented streams go through DownloadSegments,
// which fetches concurrently but writes strictly in segment order, so
// the output is identical to a sequential download.
package segment
