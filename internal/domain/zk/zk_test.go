package zk

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestEncodeConnectPacket(t *testing.T) {
	got := hex.EncodeToString(EncodePacket(CmdConnect, 0, nextReply(ushrtMax-1), nil))
	if want := "5050827d08000000e80317fc00000000"; got != want {
		t.Fatalf("connect frame = %s, want %s", got, want)
	}
}

func TestDecodeBodyRoundTrip(t *testing.T) {
	frame := EncodePacket(CmdSetTime, 42, 7, []byte{1, 2, 3})
	n, err := parseTCPHeader(frame[:tcpHeaderSize])
	if err != nil {
		t.Fatal(err)
	}
	p, err := DecodeBody(frame[tcpHeaderSize : tcpHeaderSize+n])
	if err != nil {
		t.Fatal(err)
	}
	if p.Command != CmdSetTime || p.Session != 42 || p.Reply != 7 || !bytes.Equal(p.Payload, []byte{1, 2, 3}) {
		t.Errorf("packet = %+v", p)
	}
	if _, err := parseTCPHeader([]byte{0, 0, 0, 0, 8, 0, 0, 0}); !errors.Is(err, ErrBadPacket) {
		t.Errorf("bad magic accepted: %v", err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 5, 9, 7, 30, 0, time.UTC)
	if got := DecodeTime(EncodeTime(in), time.UTC); !got.Equal(in) {
		t.Fatalf("round trip = %v, want %v", got, in)
	}
	// 2000-01-01 00:00:00 is zero
	if v := EncodeTime(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)); v != 0 {
		t.Errorf("epoch encodes to %d", v)
	}
}

func TestMakeCommKeyZero(t *testing.T) {
	got := MakeCommKey(0, 0)
	want := []byte{'S' ^ 50, 'O' ^ 50, 50, 'K' ^ 50}
	if !bytes.Equal(got, want) {
		t.Fatalf("MakeCommKey(0,0) = %v, want %v", got, want)
	}
}

func user72(uid int, userID, name string, card uint32) []byte {
	rec := make([]byte, 72)
	binary.LittleEndian.PutUint16(rec[0:], uint16(uid))
	rec[2] = 0
	copy(rec[11:35], name)
	binary.LittleEndian.PutUint32(rec[35:], card)
	copy(rec[40:47], "1")
	copy(rec[48:72], userID)
	return rec
}

func att40(uid int, userID string, ts time.Time, verify, punch byte) []byte {
	rec := make([]byte, 40)
	binary.LittleEndian.PutUint16(rec[0:], uint16(uid))
	copy(rec[2:26], userID)
	rec[26] = verify
	binary.LittleEndian.PutUint32(rec[27:], EncodeTime(ts))
	rec[31] = punch
	return rec
}

func withSize(records ...[]byte) []byte {
	body := bytes.Join(records, nil)
	out := make([]byte, 4, 4+len(body))
	binary.LittleEndian.PutUint32(out, uint32(len(body)))
	return append(out, body...)
}

func TestDecodeUsersLayouts(t *testing.T) {
	users, err := DecodeUsers(withSize(user72(1, "1001", "Alice", 55), user72(2, "1002", "", 0)), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0].UserID != "1001" || users[0].Name != "Alice" || users[0].Card != 55 {
		t.Fatalf("users = %+v", users)
	}
	if users[1].Name != "NN-1002" {
		t.Errorf("unnamed user = %q", users[1].Name)
	}

	rec := make([]byte, 28)
	binary.LittleEndian.PutUint16(rec[0:], 9)
	copy(rec[8:16], "Bob")
	binary.LittleEndian.PutUint32(rec[24:], 777)
	short, err := DecodeUsers(withSize(rec), 1)
	if err != nil {
		t.Fatal(err)
	}
	if short[0].UserID != "777" || short[0].Name != "Bob" || short[0].UID != 9 {
		t.Errorf("28 byte user = %+v", short[0])
	}
}

func TestDecodeAttendanceLayouts(t *testing.T) {
	ts := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	recs, err := DecodeAttendance(withSize(att40(1, "1001", ts, 1, 0)), 1, nil, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].UserID != "1001" || !recs[0].Timestamp.Equal(ts) || recs[0].Verify != 1 {
		t.Errorf("40 byte record = %+v", recs[0])
	}

	short := make([]byte, 8)
	binary.LittleEndian.PutUint16(short[0:], 3)
	binary.LittleEndian.PutUint32(short[3:], EncodeTime(ts))
	short[7] = 1
	recs, err = DecodeAttendance(withSize(short), 1, []User{{UID: 3, UserID: "3003"}}, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].UserID != "3003" || recs[0].Punch != 1 {
		t.Errorf("8 byte record = %+v", recs[0])
	}

	if _, err := DecodeAttendance(withSize(make([]byte, 7)), 0, nil, nil); err == nil {
		t.Error("odd sized buffer should fail")
	}
}

// fakeTerminal answers a scripted subset of the protocol on conn.
func fakeTerminal(conn net.Conn, commKey int, users, att []byte) {
	defer conn.Close()
	const session = 77
	for {
		hdr := make([]byte, tcpHeaderSize)
		if _, err := io.ReadFull(conn, hdr); err != nil {
			return
		}
		n, err := parseTCPHeader(hdr)
		if err != nil {
			return
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		p, _ := DecodeBody(body)
		write := func(cmd uint16, payload []byte) {
			conn.Write(EncodePacket(cmd, session, p.Reply, payload))
		}
		switch p.Command {
		case CmdConnect:
			write(CmdAckUnauth, nil)
		case CmdAuth:
			if bytes.Equal(p.Payload, MakeCommKey(commKey, session)) {
				write(CmdAckOK, nil)
			} else {
				write(CmdAckUnauth, nil)
			}
		case CmdGetFreeSizes:
			sizes := make([]byte, 92)
			binary.LittleEndian.PutUint32(sizes[16:], 2)
			binary.LittleEndian.PutUint32(sizes[32:], 2)
			write(CmdAckOK, sizes)
		case CmdUserTempRRQ:
			total := make([]byte, 4)
			binary.LittleEndian.PutUint32(total, uint32(len(users)))
			write(CmdPrepareData, total)
			write(CmdData, users[:100])
			write(CmdData, users[100:])
			write(CmdAckOK, nil)
		case CmdAttLogRRQ:
			write(CmdData, att)
		case CmdExit:
			return
		default:
			write(CmdAckOK, nil)
		}
	}
}

type pipeDialer struct {
	commKey int
	users   []byte
	att     []byte
	client  net.Conn
}

func (d *pipeDialer) Dial(ctx context.Context, target Target) (Session, error) {
	client, server := net.Pipe()
	d.client = client
	go fakeTerminal(server, d.commKey, d.users, d.att)
	c := NewClient(client, time.Second, target.Location)
	if err := c.connect(ctx, target.CommKey); err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

func TestClientReadsOverPipe(t *testing.T) {
	ts := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	d := &pipeDialer{
		commKey: 123,
		users:   withSize(user72(1, "1001", "Alice", 0), user72(2, "1002", "Bob", 0)),
		att:     withSize(att40(1, "1001", ts, 1, 0), att40(2, "1002", ts.Add(time.Hour), 1, 1)),
	}

	var gotUsers []User
	var gotAtt []Attendance
	err := WithSession(context.Background(), d, Target{CommKey: 123}, func(s Session) error {
		var err error
		if gotUsers, err = s.Users(context.Background()); err != nil {
			return err
		}
		gotAtt, err = s.Attendance(context.Background())
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(gotUsers) != 2 || gotUsers[1].Name != "Bob" {
		t.Errorf("users = %+v", gotUsers)
	}
	if len(gotAtt) != 2 || gotAtt[1].Punch != 1 || !gotAtt[1].Timestamp.Equal(ts.Add(time.Hour)) {
		t.Errorf("attendance = %+v", gotAtt)
	}
}

func TestWrongCommKeyRejected(t *testing.T) {
	d := &pipeDialer{commKey: 123}
	err := WithSession(context.Background(), d, Target{CommKey: 9}, func(Session) error { return nil })
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

type countingSession struct {
	Session
	closed int
}

func (s *countingSession) Close() error {
	s.closed++
	return nil
}

type staticDialer struct{ s *countingSession }

func (d staticDialer) Dial(context.Context, Target) (Session, error) { return d.s, nil }

func TestWithSessionAlwaysCloses(t *testing.T) {
	s := &countingSession{}
	boom := errors.New("boom")
	if err := WithSession(context.Background(), staticDialer{s}, Target{}, func(Session) error { return boom }); err != boom {
		t.Fatalf("err = %v", err)
	}

	func() {
		defer func() { recover() }()
		WithSession(context.Background(), staticDialer{s}, Target{}, func(Session) error { panic("fn panicked") })
	}()

	if s.closed != 2 {
		t.Fatalf("closed %d times, want 2", s.closed)
	}
}
