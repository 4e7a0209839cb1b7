// Package ringbuf provides a fixed-capacity byte ring buffer for one
// producer and one consumer running in different goroutines, with
// byte, 16-bit word and bulk operations plus blocking variants.
package ringbuf
