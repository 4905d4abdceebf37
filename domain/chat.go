package domain

import (
	"encoding/binary"
	"encoding/hex"
)

// Bot API addresses channels as -100<channel id>; MTProto uses the bare id.
const channelIDOffset int64 = -1000000000000

// ChatHandle is everything an MTProto session needs to address a channel.
type ChatHandle struct {
	ChannelID  int64
	AccessHash int64
}

func (h ChatHandle) Pack() string {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(h.ChannelID))
	binary.BigEndian.PutUint64(buf[8:], uint64(h.AccessHash))

	return hex.EncodeToString(buf)
}

func ChannelToBotChatID(channelID int64) int64 {
	return channelIDOffset - channelID
}
