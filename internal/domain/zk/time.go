package zk

import "time"

// EncodeTime packs t into the terminal's 32-bit time format. The format
// has no zone; the wall clock of t is used as is.
func EncodeTime(t time.Time) uint32 {
	days := (t.Year()%100)*12*31 + (int(t.Month())-1)*31 + t.Day() - 1
	return uint32(days*86400 + (t.Hour()*60+t.Minute())*60 + t.Second())
}

// DecodeTime unpacks the terminal time format into loc.
func DecodeTime(v uint32, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := int(v)
	second := t % 60
	t /= 60
	minute := t % 60
	t /= 60
	hour := t % 24
	t /= 24
	day := t%31 + 1
	t /= 31
	month := t%12 + 1
	t /= 12
	year := t + 2000
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
}
