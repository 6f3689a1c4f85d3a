package zk

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Target identifies a terminal reachable over TCP.
type Target struct {
	Address string
	Port    int
	CommKey int
	Timeout time.Duration
	// Location 设备本地时区，用于解析打卡时间
	Location *time.Location
}

// Addr returns host:port.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = 4370
	}
	return net.JoinHostPort(t.Address, strconv.Itoa(port))
}

// Info is the identification block read after connecting.
type Info struct {
	SerialNumber    string
	FirmwareVersion string
	DeviceName      string
	Platform        string
	MACAddress      string
	Sizes           Sizes
}

// Session is an open, authenticated connection to one terminal.
type Session interface {
	Info(ctx context.Context) (Info, error)
	Users(ctx context.Context) ([]User, error)
	Attendance(ctx context.Context) ([]Attendance, error)
	Restart(ctx context.Context) error
	SetTime(ctx context.Context, t time.Time) error
	ClearAttendance(ctx context.Context) error
	Close() error
}

// Dialer opens sessions. Tests substitute a fake.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Session, error)
}

// WithSession connects to target, runs fn and always disconnects, also
// when fn fails or panics.
func WithSession(ctx context.Context, d Dialer, target Target, fn func(Session) error) (err error) {
	s, err := d.Dial(ctx, target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// NetDialer dials real terminals.
type NetDialer struct{}

// Dial connects and authenticates with the optional comm key.
func (NetDialer) Dial(ctx context.Context, target Target) (Session, error) {
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", target.Addr())
	if err != nil {
		return nil, fmt.Errorf("zk: dial %s: %w", target.Addr(), err)
	}
	c := NewClient(conn, timeout, target.Location)
	if err := c.connect(ctx, target.CommKey); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Client speaks the protocol over an established stream.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	loc     *time.Location
	session uint16
	reply   uint16
	closed  bool
}

// NewClient wraps conn. Call Dial for a connected and authenticated
// client; NewClient alone does not send CMD_CONNECT.
func NewClient(conn net.Conn, timeout time.Duration, loc *time.Location) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{conn: conn, timeout: timeout, loc: loc, reply: ushrtMax - 1}
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}

// send writes one request and reads the first reply frame.
func (c *Client) send(ctx context.Context, cmd uint16, payload []byte) (Packet, error) {
	if err := ctx.Err(); err != nil {
		return Packet{}, err
	}
	c.conn.SetDeadline(c.deadline(ctx))
	c.reply = nextReply(c.reply)
	if _, err := c.conn.Write(EncodePacket(cmd, c.session, c.reply, payload)); err != nil {
		return Packet{}, fmt.Errorf("zk: write cmd %d: %w", cmd, err)
	}
	return c.read()
}

func (c *Client) read() (Packet, error) {
	hdr := make([]byte, tcpHeaderSize)
	if _, err := io.ReadFull(c.conn, hdr); err != nil {
		return Packet{}, fmt.Errorf("zk: read header: %w", err)
	}
	n, err := parseTCPHeader(hdr)
	if err != nil {
		return Packet{}, err
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return Packet{}, fmt.Errorf("zk: read body: %w", err)
	}
	return DecodeBody(body)
}

func (c *Client) connect(ctx context.Context, commKey int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = 0
	c.reply = ushrtMax - 1
	p, err := c.send(ctx, CmdConnect, nil)
	if err != nil {
		return err
	}
	c.session = p.Session
	if p.Command == CmdAckUnauth {
		p, err = c.send(ctx, CmdAuth, MakeCommKey(commKey, c.session))
		if err != nil {
			return err
		}
	}
	if p.Command == CmdAckUnauth {
		return ErrUnauthorized
	}
	if p.Command != CmdAckOK {
		return fmt.Errorf("zk: connect answered %d", p.Command)
	}
	return nil
}

// simple sends a command that is answered by a single ack.
func (c *Client) simple(ctx context.Context, cmd uint16, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.send(ctx, cmd, payload)
	if err != nil {
		return nil, err
	}
	if p.Command != CmdAckOK && p.Command != CmdAckData {
		return nil, fmt.Errorf("zk: cmd %d answered %d", cmd, p.Command)
	}
	return p.Payload, nil
}

// readData issues a bulk read. The terminal either answers CMD_DATA with
// the whole buffer or CMD_PREPARE_DATA followed by CMD_DATA chunks and a
// closing ack.
func (c *Client) readData(ctx context.Context, cmd uint16, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.send(ctx, cmd, payload)
	if err != nil {
		return nil, err
	}
	var data []byte
	switch p.Command {
	case CmdData:
		data = p.Payload
	case CmdPrepareData:
		if len(p.Payload) < 4 {
			return nil, ErrBadPacket
		}
		total := int(binary.LittleEndian.Uint32(p.Payload))
		data = make([]byte, 0, total)
		for len(data) < total {
			chunk, err := c.read()
			if err != nil {
				return nil, err
			}
			if chunk.Command != CmdData {
				return nil, fmt.Errorf("zk: expected data chunk, got %d", chunk.Command)
			}
			data = append(data, chunk.Payload...)
		}
		ack, err := c.read()
		if err != nil {
			return nil, err
		}
		if ack.Command != CmdAckOK {
			return nil, fmt.Errorf("zk: data transfer closed with %d", ack.Command)
		}
	case CmdAckOK:
		// 空数据
		return nil, nil
	default:
		return nil, fmt.Errorf("zk: cmd %d answered %d", cmd, p.Command)
	}
	if _, err := c.send(ctx, CmdFreeData, nil); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) option(ctx context.Context, name string) string {
	out, err := c.simple(ctx, CmdOptionsRRQ, append([]byte(name), 0))
	if err != nil {
		return ""
	}
	v := cstr(out)
	if i := strings.IndexByte(v, '='); i >= 0 {
		v = v[i+1:]
	}
	return v
}

// Info reads identification options and the record counters.
func (c *Client) Info(ctx context.Context) (Info, error) {
	sizes, err := c.sizes(ctx)
	if err != nil {
		return Info{}, err
	}
	version, err := c.simple(ctx, CmdGetVersion, nil)
	if err != nil {
		return Info{}, err
	}
	return Info{
		SerialNumber:    c.option(ctx, "~SerialNumber"),
		FirmwareVersion: cstr(version),
		DeviceName:      c.option(ctx, "~DeviceName"),
		Platform:        c.option(ctx, "~Platform"),
		MACAddress:      c.option(ctx, "MAC"),
		Sizes:           sizes,
	}, nil
}

func (c *Client) sizes(ctx context.Context) (Sizes, error) {
	out, err := c.simple(ctx, CmdGetFreeSizes, nil)
	if err != nil {
		return Sizes{}, err
	}
	return DecodeSizes(out), nil
}

// Users reads every enrolled user.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	sizes, err := c.sizes(ctx)
	if err != nil {
		return nil, err
	}
	if sizes.Users == 0 {
		return nil, nil
	}
	data, err := c.readData(ctx, CmdUserTempRRQ, []byte{fctUser})
	if err != nil {
		return nil, err
	}
	return DecodeUsers(data, sizes.Users)
}

// Attendance reads every stored punch. The user list is read first to
// resolve the compact record layout.
func (c *Client) Attendance(ctx context.Context) ([]Attendance, error) {
	sizes, err := c.sizes(ctx)
	if err != nil {
		return nil, err
	}
	if sizes.Records == 0 {
		return nil, nil
	}
	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}
	data, err := c.readData(ctx, CmdAttLogRRQ, nil)
	if err != nil {
		return nil, err
	}
	return DecodeAttendance(data, sizes.Records, users, c.loc)
}

// Restart reboots the terminal. The terminal drops the connection.
func (c *Client) Restart(ctx context.Context) error {
	_, err := c.simple(ctx, CmdRestart, nil)
	return err
}

// SetTime sets the terminal clock to the wall time of t.
func (c *Client) SetTime(ctx context.Context, t time.Time) error {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, EncodeTime(t.In(c.loc)))
	_, err := c.simple(ctx, CmdSetTime, payload)
	return err
}

// ClearAttendance deletes all stored punches on the terminal.
func (c *Client) ClearAttendance(ctx context.Context) error {
	_, err := c.simple(ctx, CmdClearAttLog, nil)
	return err
}

// Close sends CMD_EXIT and closes the socket. It is safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	c.reply = nextReply(c.reply)
	c.conn.Write(EncodePacket(CmdExit, c.session, c.reply, nil))
	return c.conn.Close()
}
