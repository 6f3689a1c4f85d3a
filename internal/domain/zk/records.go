package zk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// User is one user record read from the terminal.
type User struct {
	UID       int
	UserID    string
	Name      string
	Privilege int
	Password  string
	GroupID   string
	Card      uint32
}

// Attendance is one stored punch read from the terminal.
type Attendance struct {
	UID       int
	UserID    string
	Timestamp time.Time
	Verify    int
	Punch     int
	WorkCode  int
}

// Sizes holds the counters returned by CMD_GET_FREE_SIZES.
type Sizes struct {
	Users        int
	Fingerprints int
	Records      int
	Cards        int
	UsersCap     int
	RecordsCap   int
	Faces        int
	FacesCap     int
}

// cstr trims a NUL padded fixed-width field.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}

// stripSize drops the uint32 total-length prefix of a data buffer.
func stripSize(data []byte) []byte {
	if len(data) < 4 {
		return nil
	}
	n := int(binary.LittleEndian.Uint32(data))
	data = data[4:]
	if n < len(data) {
		data = data[:n]
	}
	return data
}

// pickRecordSize chooses the record width. count is the number of records
// the terminal reported, or 0 when unknown.
func pickRecordSize(n, count int, sizes ...int) (int, error) {
	if n == 0 {
		return sizes[0], nil
	}
	if count > 0 && n%count == 0 {
		for _, s := range sizes {
			if n/count == s {
				return s, nil
			}
		}
	}
	for _, s := range sizes {
		if n%s == 0 {
			return s, nil
		}
	}
	return 0, fmt.Errorf("zk: cannot infer record size from %d bytes", n)
}

// DecodeUsers parses a user buffer, including its length prefix. Both the
// 28 byte and the 72 byte layouts are supported.
func DecodeUsers(data []byte, count int) ([]User, error) {
	data = stripSize(data)
	size, err := pickRecordSize(len(data), count, 72, 28)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(data)/size)
	for off := 0; off+size <= len(data); off += size {
		rec := data[off : off+size]
		var u User
		if size == 28 {
			u = User{
				UID:       int(binary.LittleEndian.Uint16(rec[0:])),
				Privilege: int(rec[2]),
				Password:  cstr(rec[3:8]),
				Name:      cstr(rec[8:16]),
				Card:      binary.LittleEndian.Uint32(rec[16:]),
				GroupID:   strconv.Itoa(int(rec[21])),
				UserID:    strconv.FormatUint(uint64(binary.LittleEndian.Uint32(rec[24:])), 10),
			}
		} else {
			u = User{
				UID:       int(binary.LittleEndian.Uint16(rec[0:])),
				Privilege: int(rec[2]),
				Password:  cstr(rec[3:11]),
				Name:      cstr(rec[11:35]),
				Card:      binary.LittleEndian.Uint32(rec[35:]),
				GroupID:   cstr(rec[40:47]),
				UserID:    cstr(rec[48:72]),
			}
		}
		if u.Name == "" {
			u.Name = "NN-" + u.UserID
		}
		users = append(users, u)
	}
	return users, nil
}

// DecodeAttendance parses an attendance buffer, including its length
// prefix. users resolves the 8 byte layout, which only carries the uid.
func DecodeAttendance(data []byte, count int, users []User, loc *time.Location) ([]Attendance, error) {
	data = stripSize(data)
	size, err := pickRecordSize(len(data), count, 40, 16, 8)
	if err != nil {
		return nil, err
	}
	byUID := make(map[int]string, len(users))
	for _, u := range users {
		byUID[u.UID] = u.UserID
	}

	records := make([]Attendance, 0, len(data)/size)
	for off := 0; off+size <= len(data); off += size {
		rec := data[off : off+size]
		var a Attendance
		switch size {
		case 8:
			a.UID = int(binary.LittleEndian.Uint16(rec[0:]))
			a.Verify = int(rec[2])
			a.Timestamp = DecodeTime(binary.LittleEndian.Uint32(rec[3:]), loc)
			a.Punch = int(rec[7])
			a.UserID = byUID[a.UID]
			if a.UserID == "" {
				a.UserID = strconv.Itoa(a.UID)
			}
		case 16:
			a.UserID = strconv.FormatUint(uint64(binary.LittleEndian.Uint32(rec[0:])), 10)
			a.Timestamp = DecodeTime(binary.LittleEndian.Uint32(rec[4:]), loc)
			a.Verify = int(rec[8])
			a.Punch = int(rec[9])
			a.WorkCode = int(binary.LittleEndian.Uint32(rec[12:]))
		default:
			a.UID = int(binary.LittleEndian.Uint16(rec[0:]))
			a.UserID = cstr(rec[2:26])
			a.Verify = int(rec[26])
			a.Timestamp = DecodeTime(binary.LittleEndian.Uint32(rec[27:]), loc)
			a.Punch = int(rec[31])
		}
		records = append(records, a)
	}
	return records, nil
}

// DecodeSizes parses the CMD_GET_FREE_SIZES payload.
func DecodeSizes(data []byte) Sizes {
	field := func(i int) int {
		off := i * 4
		if off+4 > len(data) {
			return 0
		}
		return int(int32(binary.LittleEndian.Uint32(data[off:])))
	}
	s := Sizes{
		Users:        field(4),
		Fingerprints: field(6),
		Records:      field(8),
		Cards:        field(12),
		UsersCap:     field(15),
		RecordsCap:   field(16),
	}
	if len(data) >= 92 {
		s.Faces = field(20)
		s.FacesCap = field(22)
	}
	return s
}
