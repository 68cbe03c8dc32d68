// Package fingerprint computes partial-content identity hashes for media
// files: whole-file MD5 below a small threshold, otherwise an MD5 over the
// digests of the first, middle, and last sampled windows.
package fingerprint
