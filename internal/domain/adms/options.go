package adms

import (
	"fmt"
	"strconv"
	"strings"
)

// Settings are the server-side values sent back on registration.
type Settings struct {
	ErrorDelay      int
	Delay           int
	TimeZone        int
	TransFlag       string
	ServerVersion   string
	PushVersion     string
	TransTimes      string
	TransInterval   int
	ATTLOGStamp     string
	OPERLOGStamp    string
	ATTPHOTOStamp   string
	RealtimeEnabled bool
}

// DefaultSettings returns the values used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		ErrorDelay:      30,
		Delay:           10,
		TimeZone:        6,
		TransFlag:       "TransData AttLog OpLog EnrollUser ChgUser EnrollFP ChgFP FACE",
		ServerVersion:   "2.4.1",
		PushVersion:     "2.4.1",
		TransTimes:      "00:00;14:05",
		TransInterval:   1,
		ATTLOGStamp:     "None",
		OPERLOGStamp:    "9999",
		ATTPHOTOStamp:   "None",
		RealtimeEnabled: true,
	}
}

// FormatSettings renders the "GET OPTION FROM" block for serial.
func FormatSettings(serial string, s Settings) string {
	realtime := 0
	if s.RealtimeEnabled {
		realtime = 1
	}
	lines := []string{
		"GET OPTION FROM: " + serial,
		"ATTLOGStamp=" + s.ATTLOGStamp,
		"OPERLOGStamp=" + s.OPERLOGStamp,
		"ATTPHOTOStamp=" + s.ATTPHOTOStamp,
		fmt.Sprintf("ErrorDelay=%d", s.ErrorDelay),
		fmt.Sprintf("Delay=%d", s.Delay),
		"TransTimes=" + s.TransTimes,
		fmt.Sprintf("TransInterval=%d", s.TransInterval),
		"TransFlag=" + s.TransFlag,
		fmt.Sprintf("TimeZone=%d", s.TimeZone),
		fmt.Sprintf("Realtime=%d", realtime),
		"Encrypt=None",
		"ServerVer=" + s.ServerVersion,
		"PushProtocolVer=" + s.PushVersion,
	}
	return strings.Join(lines, "\n") + "\n"
}

// DeviceInfo is the comma-separated INFO parameter terminals attach to
// getrequest polls: firmware,users,fingerprints,transactions,ip,fp
// version,face version,face template count,faces.
type DeviceInfo struct {
	FirmwareVersion  string
	UserCount        int
	FingerprintCount int
	TransactionCount int
	IPAddress        string
	FaceCount        int
}

// ParseInfo decodes the INFO parameter. Missing positions stay zero.
func ParseInfo(info string) (DeviceInfo, bool) {
	info = strings.TrimSpace(info)
	if info == "" {
		return DeviceInfo{}, false
	}
	parts := strings.Split(info, ",")
	at := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}
	num := func(i int) int {
		n, _ := strconv.Atoi(at(i))
		return n
	}
	return DeviceInfo{
		FirmwareVersion:  at(0),
		UserCount:        num(1),
		FingerprintCount: num(2),
		TransactionCount: num(3),
		IPAddress:        at(4),
		FaceCount:        num(8),
	}, true
}
