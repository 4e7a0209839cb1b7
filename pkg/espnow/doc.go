// Package espnow provides an ESP-NOW style datagram transport.
package espnow

// Received datagrams are framed into a single ring buffer shared
// between the link driver's delivery context (the producer) and the
// application (the consumer). The producer never blocks: when the
// buffer cannot hold a frame the frame is dropped and counted.
//
// Sending is decoupled from the receive buffer. Every Send expects
// one link-level status callback per target peer; the synchronous
// send mode drains those callbacks and reports whether all expected
// peers acknowledged delivery.
//
// Producer: Driver delivery goroutine
// Consumer: application calling Recv/RecvInto
