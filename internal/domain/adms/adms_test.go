package adms

import (
	"strings"
	"testing"
	"time"

	"github.com/oleeahmmed/hrm/internal/domain/models"
)

func TestParseTableKind(t *testing.T) {
	cases := map[string]TableKind{
		"ATTLOG":    TableAttLog,
		"attlog":    TableAttLog,
		"OPERLOG":   TableOperLog,
		"USERINFO":  TableUserInfo,
		"USER":      TableUserInfo,
		"FINGERTMP": TableFingerTmp,
		"BIODATA":   TableFace,
		"options":   TableOptions,
		"ATTPHOTO":  TableUnknown,
		"":          TableUnknown,
	}
	for tag, want := range cases {
		if got := ParseTableKind(tag); got != want {
			t.Errorf("ParseTableKind(%q) = %s, want %s", tag, got, want)
		}
	}
}

func TestParseAttLogPositional(t *testing.T) {
	loc := time.FixedZone("UTC+6", 6*3600)
	body := "1001\t2024-03-05 09:07:00\t0\t1\t0\t0\n" +
		"1002\t2024-03-05 18:01:30\t1\t15\t\t0\t0\t1\t36.5\n" +
		"broken line\n" +
		"\n"
	b := ParseBody(TableAttLog, body, loc)

	if b.Lines != 3 {
		t.Fatalf("Lines = %d, want 3", b.Lines)
	}
	if b.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", b.Failed)
	}
	if len(b.Punches) != 2 {
		t.Fatalf("got %d punches, want 2", len(b.Punches))
	}
	p := b.Punches[0]
	want := time.Date(2024, 3, 5, 9, 7, 0, 0, loc)
	if p.SubjectID != "1001" || !p.Time.Equal(want) || p.Status != 0 || p.Verify != 1 {
		t.Errorf("unexpected first punch: %+v", p)
	}
	second := b.Punches[1]
	if second.Verify != 15 || second.Temperature == nil || *second.Temperature != 36.5 {
		t.Errorf("temperature not parsed: %+v", second)
	}
	if second.Mask == nil || !*second.Mask {
		t.Errorf("mask flag not parsed: %+v", second)
	}
}

func TestParseAttLogKeyValue(t *testing.T) {
	body := "PIN=7\tDateTime=2024-03-05 08:00:00\tStatus=0\tVerify=1\tTemperature=36.8\tMaskFlag=0"
	b := ParseBody(TableAttLog, body, nil)
	if b.Failed != 0 || len(b.Punches) != 1 {
		t.Fatalf("batch = %+v", b)
	}
	p := b.Punches[0]
	if p.SubjectID != "7" || p.Time.Location() != time.UTC {
		t.Errorf("unexpected punch: %+v", p)
	}
	if p.Mask == nil || *p.Mask {
		t.Errorf("mask should be false: %+v", p)
	}
}

func TestParseUserInfoDialects(t *testing.T) {
	body := "42\tAlice\t14\t1234\t998877\t1\n" +
		"USER PIN=43\tName=Bob\tPri=0\tPasswd=\tCard=\tGrp=2\n" +
		"PIN=44\tName=Carol\n" +
		"Name=Ghost"
	b := ParseBody(TableUserInfo, body, nil)
	if len(b.Users) != 3 || b.Failed != 1 {
		t.Fatalf("users=%d failed=%d", len(b.Users), b.Failed)
	}
	if u := b.Users[0]; u.Name != "Alice" || u.Privilege != 14 || u.Card != "998877" {
		t.Errorf("positional user = %+v", u)
	}
	if u := b.Users[1]; u.SubjectID != "43" || u.Group != "2" {
		t.Errorf("prefixed user = %+v", u)
	}
	if u := b.Users[2]; u.SubjectID != "44" || u.Name != "Carol" {
		t.Errorf("kv user = %+v", u)
	}
}

func TestParseOperLogMixedBody(t *testing.T) {
	body := "OPLOG 6\t0\t2024-03-05 10:00:00\t42\t1\t0\t0\n" +
		"USER PIN=42\tName=Alice\tPri=0\n" +
		"FP PIN=42\tFID=1\tSize=4\tValid=1\tTMP=QUJD\n" +
		"4\t1\t2024-03-05 10:05:00\t0\t0\t0\t0\n" +
		"OPLOG x\t0\t2024-03-05 10:00:00"
	b := ParseBody(TableOperLog, body, nil)
	if len(b.Operations) != 2 || len(b.Users) != 1 || len(b.Fingerprints) != 1 {
		t.Fatalf("ops=%d users=%d fps=%d", len(b.Operations), len(b.Users), len(b.Fingerprints))
	}
	if b.Failed != 1 {
		t.Errorf("Failed = %d, want 1", b.Failed)
	}
	if op := b.Operations[0]; op.Code != 6 || op.Params != "42,1,0,0" {
		t.Errorf("operation = %+v", op)
	}
	if fp := b.Fingerprints[0]; fp.Index != 1 || fp.Data != "QUJD" {
		t.Errorf("template = %+v", fp)
	}
}

func TestParseBiodata(t *testing.T) {
	b := ParseBody(TableFace, "BIODATA Pin=5\tNo=0\tValid=1\tTmp=ZZZZ", nil)
	if len(b.Faces) != 1 || b.Faces[0].SubjectID != "5" || b.Faces[0].Size != 4 {
		t.Fatalf("faces = %+v", b.Faces)
	}
}

func TestParseOptions(t *testing.T) {
	b := ParseBody(TableOptions, "~DeviceName=K40,UserCount=12\tFPCount=30\nbroken", nil)
	if b.Options["DeviceName"] != "K40" || b.Options["UserCount"] != "12" || b.Options["FPCount"] != "30" {
		t.Fatalf("options = %v", b.Options)
	}
	if b.Parsed() != 3 {
		t.Errorf("Parsed = %d", b.Parsed())
	}
}

func TestFormatCommand(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		kind    models.CommandKind
		content string
		want    string
	}{
		{models.CommandReboot, "", "C:17:REBOOT"},
		{models.CommandClearLog, "", "C:17:CLEAR LOG"},
		{models.CommandSyncTime, "", "C:17:SET OPTIONS DateTime=1709640000"},
		{models.CommandDeleteUser, "42", "C:17:DATA DELETE USERINFO PIN=42"},
		{models.CommandUpsertUser, "PIN=42\tName=Alice", "C:17:DATA UPDATE USERINFO PIN=42\tName=Alice"},
		{models.CommandFetchLogs, "2024-03-01 00:00:00,2024-03-02 00:00:00",
			"C:17:DATA QUERY ATTLOG StartTime=2024-03-01 00:00:00\tEndTime=2024-03-02 00:00:00"},
	}
	for _, tc := range cases {
		got, err := FormatCommand("17", tc.kind, tc.content, now)
		if err != nil {
			t.Errorf("%s: %v", tc.kind, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.kind, got, tc.want)
		}
	}

	if _, err := FormatCommand("1", models.CommandSetOption, "", now); err == nil {
		t.Error("set_option without content should fail")
	}
	if _, err := FormatCommand("1", models.CommandKind("selfdestruct"), "", now); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestParseAcks(t *testing.T) {
	body := "ID=17&Return=0&CMD=REBOOT\nID=18&Return=-1002&CMD=DATA\nReturn=0\nID=19&Return=x"
	acks := ParseAcks(body)
	if len(acks) != 2 {
		t.Fatalf("got %d acks, want 2", len(acks))
	}
	if !acks[0].Succeeded() || acks[0].ID != "17" || acks[0].Cmd != "REBOOT" {
		t.Errorf("ack[0] = %+v", acks[0])
	}
	if acks[1].Succeeded() || acks[1].Return != -1002 {
		t.Errorf("ack[1] = %+v", acks[1])
	}
}

func TestFormatSettings(t *testing.T) {
	out := FormatSettings("ABC123", DefaultSettings())
	if !strings.HasPrefix(out, "GET OPTION FROM: ABC123\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	for _, want := range []string{"ErrorDelay=30", "Delay=10", "TimeZone=6", "Realtime=1", "PushProtocolVer=2.4.1"} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("settings missing %q", want)
		}
	}
}

func TestParseInfo(t *testing.T) {
	info, ok := ParseInfo("Ver 6.60,12,30,1500,192.168.1.20,10,7,15,4")
	if !ok {
		t.Fatal("expected info")
	}
	if info.FirmwareVersion != "Ver 6.60" || info.UserCount != 12 || info.TransactionCount != 1500 || info.FaceCount != 4 {
		t.Errorf("info = %+v", info)
	}
	if _, ok := ParseInfo(""); ok {
		t.Error("empty info should not parse")
	}
}
