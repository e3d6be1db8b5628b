// Package frag provides the multi-channel sample buffer at the core of the
// synthesis engine. A Fragment owns one float64 slice per channel, all of
// equal length, at a fixed sample rate. It supports in-place additive
// mixing at arbitrary time offsets, per-channel amplification,
// normalization, conversion to and from interchange byte layouts, and an
// MD5 content hash over the quantized sample image.
//
// Fragments are not safe for concurrent mutation; callers rendering into a
// shared master fragment from multiple goroutines must serialize access.
package frag
