package adms

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the wall-clock format terminals use in push bodies.
const TimeLayout = "2006-01-02 15:04:05"

// Punch is one parsed attendance line.
type Punch struct {
	SubjectID   string
	Time        time.Time
	Status      int
	Verify      int
	WorkCode    string
	Temperature *float64
	Mask        *bool
	Raw         string
}

// User is one parsed user directory line.
type User struct {
	SubjectID string
	Name      string
	Privilege int
	Password  string
	Card      string
	Group     string
}

// Template is an opaque biometric template line.
type Template struct {
	SubjectID string
	Index     int
	Size      int
	Valid     int
	Data      string
}

// Operation is one OPERLOG audit line.
type Operation struct {
	Code    int
	AdminID string
	Time    time.Time
	Params  string
}

// Batch collects everything parsed from a single push body. Lines that
// fail to parse are counted in Failed and otherwise dropped.
type Batch struct {
	Lines        int
	Failed       int
	Punches      []Punch
	Users        []User
	Fingerprints []Template
	Faces        []Template
	Operations   []Operation
	Options      map[string]string
}

// Parsed returns the number of records that parsed successfully.
func (b *Batch) Parsed() int {
	return len(b.Punches) + len(b.Users) + len(b.Fingerprints) + len(b.Faces) + len(b.Operations) + len(b.Options)
}

// ParseBody splits body into lines and parses each according to kind.
// Records whose line carries its own prefix (USER, FP, FACE, BIODATA,
// OPLOG) are routed by the prefix, since firmware interleaves them inside
// OPERLOG uploads. Timestamps are interpreted in loc.
func ParseBody(kind TableKind, body string, loc *time.Location) Batch {
	if loc == nil {
		loc = time.UTC
	}
	b := Batch{}
	if kind == TableOptions {
		b.Options = ParseOptions(body)
		b.Lines = len(b.Options)
		return b
	}

	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.Lines++
		if err := b.parseLine(kind, line, loc); err != nil {
			b.Failed++
		}
	}
	return b
}

func (b *Batch) parseLine(kind TableKind, line string, loc *time.Location) error {
	prefix, rest := splitPrefix(line)
	switch prefix {
	case "USER":
		u, err := parseUserKV(rest)
		if err != nil {
			return err
		}
		b.Users = append(b.Users, u)
		return nil
	case "FP":
		t, err := parseTemplate(rest)
		if err != nil {
			return err
		}
		b.Fingerprints = append(b.Fingerprints, t)
		return nil
	case "FACE", "BIODATA":
		t, err := parseTemplate(rest)
		if err != nil {
			return err
		}
		b.Faces = append(b.Faces, t)
		return nil
	case "OPLOG":
		op, err := parseOperation(rest, loc)
		if err != nil {
			return err
		}
		b.Operations = append(b.Operations, op)
		return nil
	}

	switch kind {
	case TableAttLog:
		p, err := parsePunch(line, loc)
		if err != nil {
			return err
		}
		b.Punches = append(b.Punches, p)
	case TableOperLog:
		op, err := parseOperation(line, loc)
		if err != nil {
			return err
		}
		b.Operations = append(b.Operations, op)
	case TableUserInfo:
		u, err := parseUser(line)
		if err != nil {
			return err
		}
		b.Users = append(b.Users, u)
	case TableFingerTmp:
		t, err := parseTemplate(line)
		if err != nil {
			return err
		}
		b.Fingerprints = append(b.Fingerprints, t)
	case TableFace:
		t, err := parseTemplate(line)
		if err != nil {
			return err
		}
		b.Faces = append(b.Faces, t)
	default:
		return fmt.Errorf("no parser for table %s", kind)
	}
	return nil
}

// splitPrefix recognises the record-type word some firmware puts in front
// of KEY=VALUE records ("USER PIN=1\tName=..").
func splitPrefix(line string) (string, string) {
	idx := strings.IndexAny(line, " \t")
	if idx <= 0 {
		return "", line
	}
	word := strings.ToUpper(line[:idx])
	switch word {
	case "USER", "FP", "FACE", "BIODATA", "OPLOG":
		return word, strings.TrimSpace(line[idx+1:])
	}
	return "", line
}

// isKV reports whether the record uses the KEY=VALUE dialect.
func isKV(line string) bool {
	first := line
	if idx := strings.IndexByte(line, '\t'); idx >= 0 {
		first = line[:idx]
	}
	return strings.Contains(first, "=")
}

// parseKV splits a tab-joined KEY=VALUE record. Keys are upper-cased.
func parseKV(line string) map[string]string {
	fields := make(map[string]string)
	for _, part := range strings.Split(line, "\t") {
		part = strings.TrimSpace(part)
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		fields[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return fields
}

func firstOf(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v
		}
	}
	return ""
}

func atoiDefault(v string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return n
	}
	return def
}

func parseTime(v string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(v), loc)
}

func parsePunch(line string, loc *time.Location) (Punch, error) {
	p := Punch{Raw: line, Status: 255}
	if isKV(line) {
		f := parseKV(line)
		p.SubjectID = firstOf(f, "PIN", "USERID")
		ts := firstOf(f, "DATETIME", "TIME", "CHECKTIME")
		t, err := parseTime(ts, loc)
		if err != nil {
			return Punch{}, fmt.Errorf("punch time %q: %w", ts, err)
		}
		p.Time = t
		p.Status = atoiDefault(firstOf(f, "STATUS"), 255)
		p.Verify = atoiDefault(firstOf(f, "VERIFY"), 0)
		p.WorkCode = firstOf(f, "WORKCODE")
		p.Temperature = parseTemperature(firstOf(f, "TEMPERATURE", "TEMP"))
		p.Mask = parseMask(firstOf(f, "MASKFLAG", "MASK"))
	} else {
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			return Punch{}, fmt.Errorf("punch line has %d fields", len(parts))
		}
		p.SubjectID = strings.TrimSpace(parts[0])
		t, err := parseTime(parts[1], loc)
		if err != nil {
			return Punch{}, fmt.Errorf("punch time %q: %w", parts[1], err)
		}
		p.Time = t
		if len(parts) > 2 {
			p.Status = atoiDefault(parts[2], 255)
		}
		if len(parts) > 3 {
			p.Verify = atoiDefault(parts[3], 0)
		}
		if len(parts) > 4 {
			p.WorkCode = strings.TrimSpace(parts[4])
		}
		// 带测温/口罩检测的固件在第8、9列追加字段
		if len(parts) > 7 {
			p.Mask = parseMask(parts[7])
		}
		if len(parts) > 8 {
			p.Temperature = parseTemperature(parts[8])
		}
	}
	if p.SubjectID == "" {
		return Punch{}, fmt.Errorf("punch line without PIN")
	}
	return p, nil
}

func parseTemperature(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil || t <= 0 || t == 255 {
		return nil
	}
	return &t
}

func parseMask(v string) *bool {
	switch strings.TrimSpace(v) {
	case "1":
		b := true
		return &b
	case "0":
		b := false
		return &b
	}
	return nil
}

// parseUser accepts both user dialects: positional tab-separated fields
// (PIN, Name, Pri, Passwd, Card, Grp) and KEY=VALUE pairs.
func parseUser(line string) (User, error) {
	if isKV(line) {
		return parseUserKV(line)
	}
	parts := strings.Split(line, "\t")
	u := User{SubjectID: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		u.Name = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		u.Privilege = atoiDefault(parts[2], 0)
	}
	if len(parts) > 3 {
		u.Password = strings.TrimSpace(parts[3])
	}
	if len(parts) > 4 {
		u.Card = strings.TrimSpace(parts[4])
	}
	if len(parts) > 5 {
		u.Group = strings.TrimSpace(parts[5])
	}
	if u.SubjectID == "" {
		return User{}, fmt.Errorf("user line without PIN")
	}
	return u, nil
}

func parseUserKV(line string) (User, error) {
	f := parseKV(line)
	u := User{
		SubjectID: firstOf(f, "PIN", "USERID"),
		Name:      firstOf(f, "NAME"),
		Privilege: atoiDefault(firstOf(f, "PRI", "PRIVILEGE"), 0),
		Password:  firstOf(f, "PASSWD", "PASSWORD"),
		Card:      firstOf(f, "CARD"),
		Group:     firstOf(f, "GRP", "GROUP"),
	}
	if u.SubjectID == "" {
		return User{}, fmt.Errorf("user record without PIN")
	}
	return u, nil
}

func parseTemplate(line string) (Template, error) {
	f := parseKV(line)
	t := Template{
		SubjectID: firstOf(f, "PIN"),
		Index:     atoiDefault(firstOf(f, "FID", "NO", "INDEX"), 0),
		Size:      atoiDefault(firstOf(f, "SIZE"), 0),
		Valid:     atoiDefault(firstOf(f, "VALID"), 1),
		Data:      firstOf(f, "TMP", "TEMPLATE"),
	}
	if t.SubjectID == "" || t.Data == "" {
		return Template{}, fmt.Errorf("template record missing PIN or TMP")
	}
	if t.Size == 0 {
		t.Size = len(t.Data)
	}
	return t, nil
}

// parseOperation parses "op \t admin \t time \t p1 \t p2 \t p3 \t p4".
func parseOperation(line string, loc *time.Location) (Operation, error) {
	parts := strings.Split(line, "\t")
	if len(parts) < 3 {
		return Operation{}, fmt.Errorf("operation line has %d fields", len(parts))
	}
	opCode, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Operation{}, fmt.Errorf("operation code %q: %w", parts[0], err)
	}
	t, err := parseTime(parts[2], loc)
	if err != nil {
		return Operation{}, fmt.Errorf("operation time %q: %w", parts[2], err)
	}
	params := make([]string, 0, 4)
	for _, p := range parts[3:] {
		params = append(params, strings.TrimSpace(p))
	}
	return Operation{
		Code:    opCode,
		AdminID: strings.TrimSpace(parts[1]),
		Time:    t,
		Params:  strings.Join(params, ","),
	}, nil
}

// ParseOptions reads key=value pairs separated by commas, tabs or new
// lines. A leading "~" on keys is dropped.
func ParseOptions(body string) map[string]string {
	opts := make(map[string]string)
	fields := strings.FieldsFunc(body, func(r rune) bool {
		return r == ',' || r == '\t' || r == '\n' || r == '\r'
	})
	for _, f := range fields {
		key, value, ok := strings.Cut(strings.TrimSpace(f), "=")
		if !ok {
			continue
		}
		key = strings.TrimPrefix(strings.TrimSpace(key), "~")
		if key == "" {
			continue
		}
		opts[key] = strings.TrimSpace(value)
	}
	return opts
}
