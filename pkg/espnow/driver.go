package espnow

// Driver is the link layer a Transport rides on.
type Driver interface {
	// Attach registers the event handler and starts delivery.
	Attach(Handler) error
	// Send hands one datagram to the link layer. It may fail with
	// ErrDriverBusy when internal transmit buffers are full, which
	// the transport retries with backoff.
	Send(peer Addr, data []byte) error
	// LocalAddr returns the address peers use to reach this node.
	LocalAddr() Addr
	// Close stops delivery and releases the link.
	Close() error
}

// Handler receives link events from a Driver. Both methods are
// invoked from the driver's delivery context and must return
// immediately: enqueue or count, nothing else.
type Handler interface {
	// HandleReceive is invoked once per received datagram. data is
	// only valid for the duration of the call.
	HandleReceive(peer Addr, data []byte)
	// HandleSendStatus is invoked once per target peer for every
	// Send, reporting link-level delivery.
	HandleSendStatus(peer Addr, delivered bool)
}
