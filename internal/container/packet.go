package container

// Packet is one compressed, timestamped unit read from a container.
// Packets are handed straight to a codec and not retained.
type Packet struct {
	StreamIndex int
	PTS         int64
	Duration    int64
	Data        []byte
}
