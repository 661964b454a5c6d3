package room

// Member is the Room/Call/Router-facing view of a live client channel.
// It is implemented by transport.Connection; keeping it as an interface
// here lets room stay ignorant of WebSocket plumbing, exactly the way the
// teacher's types.ClientInterface decouples its room package from its
// transport package.
type Member interface {
	// ID is the stable handle assigned at accept time.
	ID() string
	// DisplayName is the human-readable name chosen at join time.
	DisplayName() string
	SetDisplayName(name string)
	// RoomID is the key of the Room this member currently claims
	// membership in, or "" if it isn't in one.
	RoomID() string
	SetRoomID(id string)
	// IsClosed reports whether the underlying channel is already gone.
	IsClosed() bool
	// Send serializes and queues a frame for delivery. Failures are
	// swallowed; a dead channel is reaped by the heartbeat supervisor.
	Send(frame []byte)
	// Close requests channel shutdown with a reason visible only in logs.
	Close(reason string)
}
