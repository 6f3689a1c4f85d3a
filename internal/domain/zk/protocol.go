// Package zk is a client for the binary terminal protocol spoken on TCP
// port 4370. It supports the small set of reads and control commands the
// pull sync needs.
package zk

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Command codes
const (
	CmdConnect       uint16 = 1000
	CmdExit          uint16 = 1001
	CmdEnableDevice  uint16 = 1002
	CmdDisableDevice uint16 = 1003
	CmdRestart       uint16 = 1004
	CmdAuth          uint16 = 1102
	CmdGetVersion    uint16 = 1100
	CmdPrepareData   uint16 = 1500
	CmdData          uint16 = 1501
	CmdFreeData      uint16 = 1502
	CmdOptionsRRQ    uint16 = 11
	CmdUserTempRRQ   uint16 = 9
	CmdAttLogRRQ     uint16 = 13
	CmdClearAttLog   uint16 = 15
	CmdGetFreeSizes  uint16 = 50
	CmdGetTime       uint16 = 201
	CmdSetTime       uint16 = 202

	CmdAckOK     uint16 = 2000
	CmdAckError  uint16 = 2001
	CmdAckData   uint16 = 2002
	CmdAckUnauth uint16 = 2005
)

const (
	magic1 uint16 = 0x5050
	magic2 uint16 = 0x7d82

	tcpHeaderSize = 8
	headerSize    = 8
	ushrtMax      = 65535

	// 用户读取时的 FCT_USER 参数
	fctUser byte = 5
)

var (
	// ErrUnauthorized 通讯密码错误
	ErrUnauthorized = errors.New("zk: device rejected comm key")
	// ErrBadPacket 报文头不合法
	ErrBadPacket = errors.New("zk: malformed packet")
)

// Packet is a decoded protocol frame.
type Packet struct {
	Command uint16
	Session uint16
	Reply   uint16
	Payload []byte
}

// Checksum computes the 16-bit ones-complement checksum over the 8 byte
// header (with a zero checksum field) plus payload.
func Checksum(buf []byte) uint16 {
	var sum uint32
	i := 0
	for ; i+1 < len(buf); i += 2 {
		sum += uint32(binary.LittleEndian.Uint16(buf[i:]))
	}
	if i < len(buf) {
		sum += uint32(buf[i])
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

// EncodePacket builds a TCP frame. reply is the value already advanced
// for this request.
func EncodePacket(cmd, session, reply uint16, payload []byte) []byte {
	body := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint16(body[0:], cmd)
	binary.LittleEndian.PutUint16(body[4:], session)
	binary.LittleEndian.PutUint16(body[6:], reply)
	copy(body[headerSize:], payload)
	binary.LittleEndian.PutUint16(body[2:], Checksum(body))

	frame := make([]byte, tcpHeaderSize+len(body))
	binary.LittleEndian.PutUint16(frame[0:], magic1)
	binary.LittleEndian.PutUint16(frame[2:], magic2)
	binary.LittleEndian.PutUint32(frame[4:], uint32(len(body)))
	copy(frame[tcpHeaderSize:], body)
	return frame
}

// parseTCPHeader returns the body length announced by a frame header.
func parseTCPHeader(hdr []byte) (int, error) {
	if len(hdr) < tcpHeaderSize {
		return 0, ErrBadPacket
	}
	if binary.LittleEndian.Uint16(hdr[0:]) != magic1 || binary.LittleEndian.Uint16(hdr[2:]) != magic2 {
		return 0, ErrBadPacket
	}
	n := int(binary.LittleEndian.Uint32(hdr[4:]))
	if n < headerSize {
		return 0, fmt.Errorf("%w: body length %d", ErrBadPacket, n)
	}
	return n, nil
}

// DecodeBody parses the body of a frame (without the TCP header).
func DecodeBody(body []byte) (Packet, error) {
	if len(body) < headerSize {
		return Packet{}, ErrBadPacket
	}
	return Packet{
		Command: binary.LittleEndian.Uint16(body[0:]),
		Session: binary.LittleEndian.Uint16(body[4:]),
		Reply:   binary.LittleEndian.Uint16(body[6:]),
		Payload: append([]byte(nil), body[headerSize:]...),
	}, nil
}

// nextReply advances the reply counter the way the firmware expects.
func nextReply(reply uint16) uint16 {
	r := int(reply) + 1
	if r >= ushrtMax {
		r -= ushrtMax
	}
	return uint16(r)
}

// MakeCommKey scrambles the numeric comm key with the session id for
// CMD_AUTH.
func MakeCommKey(key int, session uint16) []byte {
	var k uint32
	for i := 0; i < 32; i++ {
		if key&(1<<uint(i)) != 0 {
			k = k<<1 | 1
		} else {
			k <<= 1
		}
	}
	k += uint32(session)

	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, k)
	b[0] ^= 'Z'
	b[1] ^= 'K'
	b[2] ^= 'S'
	b[3] ^= 'O'
	// 交换前后两个 uint16
	b[0], b[1], b[2], b[3] = b[2], b[3], b[0], b[1]

	const ticks byte = 50
	return []byte{b[0] ^ ticks, b[1] ^ ticks, ticks, b[3] ^ ticks}
}
