// Package codec provides transparent gzip compression for large resource
// payloads.
//
// Payloads above the compression threshold are stored as compressed bytes;
// everything else is stored as raw text. The codec is a pure transform:
// Decompress(Compress(x)) == x for every input, including the empty string.
// Callers above the store layer never observe compressed bytes.
package codec
