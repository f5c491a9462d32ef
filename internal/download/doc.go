// Package download orchestrates the retrieval pipeline.
//
// The Manager owns a queue of media items and processes them strictly in
// order: resolve metadata, select a rendition, acquire the content key,
// fetch, decrypt, remux, finalize. Per-item failures are counted and the
// queue keeps moving; authentication failures abort the whole run.
// Temporary artifacts of an item are removed when the item ends, in
// every terminal state.
package download
