package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/oleeahmmed/hrm/internal/domain/models"
)

func TestHandshakeRegistersUnknownDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.gateway.Handshake(ctx, HandshakeRequest{Serial: "NEW123", IP: "10.0.0.9", PushVersion: "2.4.1"})
	if !strings.HasPrefix(reply, "GET OPTION FROM: NEW123\n") {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(reply, "TransFlag=TransData AttLog OpLog") {
		t.Errorf("settings not taken from config: %q", reply)
	}

	d, err := f.registry.GetBySerial("NEW123")
	if err != nil {
		t.Fatal(err)
	}
	if !d.IsActive || d.IPAddress != "10.0.0.9" || d.Scope != "default" || !f.registry.IsOnline(d) {
		t.Errorf("device = %+v", d)
	}
	beats, _ := f.registry.Heartbeats(d.ID, 10)
	if len(beats) != 1 {
		t.Errorf("heartbeats = %d", len(beats))
	}
	if n := f.notifier.count(EventDeviceOnline); n != 1 {
		t.Errorf("device_online events = %d", n)
	}

	// 已在线的设备再次握手不再发布上线事件
	f.gateway.Handshake(ctx, HandshakeRequest{Serial: "NEW123", Poll: true})
	if n := f.notifier.count(EventDeviceOnline); n != 1 {
		t.Errorf("device_online events after poll = %d", n)
	}
}

func TestAckFromOtherDeviceIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.device(t, "DEVA", models.ConnectionPush)
	f.device(t, "DEVB", models.ConnectionPush)
	cmd, err := f.commands.Enqueue(ctx, owner.ID, models.CommandClearData, "")
	if err != nil {
		t.Fatal(err)
	}
	f.gateway.Handshake(ctx, HandshakeRequest{Serial: "DEVA", Poll: true})

	body := fmt.Sprintf("ID=%d&Return=0&CMD=CLEAR DATA", cmd.ID)
	if n := f.gateway.Acknowledge(ctx, AckRequest{Serial: "DEVB", Body: body}); n != 0 {
		t.Fatalf("ack from DEVB matched %d", n)
	}
	if got, _ := f.commands.Get(ctx, cmd.ID); got.Status != models.CommandSent {
		t.Fatalf("status after foreign ack = %s, want sent", got.Status)
	}
	if n := f.gateway.Acknowledge(ctx, AckRequest{Serial: "DEVA", Body: body}); n != 1 {
		t.Fatalf("ack from owner matched %d", n)
	}
	if got, _ := f.commands.Get(ctx, cmd.ID); got.Status != models.CommandExecuted {
		t.Errorf("status = %s", got.Status)
	}
}

func TestHandshakeDeliversCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.device(t, "CMD1", models.ConnectionPush)
	cmd, err := f.commands.Enqueue(ctx, d.ID, models.CommandReboot, "")
	if err != nil {
		t.Fatal(err)
	}

	reply := f.gateway.Handshake(ctx, HandshakeRequest{Serial: "CMD1", Poll: true})
	if want := fmt.Sprintf("C:%d:REBOOT", cmd.ID); reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
	if reply := f.gateway.Handshake(ctx, HandshakeRequest{Serial: "CMD1", Poll: true}); reply != ReplyOK {
		t.Errorf("idle poll = %q", reply)
	}

	body := fmt.Sprintf("ID=%d&Return=0&CMD=REBOOT", cmd.ID)
	if n := f.gateway.Acknowledge(ctx, AckRequest{Serial: "CMD1", Body: body}); n != 1 {
		t.Fatalf("matched = %d", n)
	}
	if n := f.gateway.Acknowledge(ctx, AckRequest{Serial: "CMD1", Body: body}); n != 0 {
		t.Errorf("duplicate ack matched %d", n)
	}
	got, _ := f.commands.Get(ctx, cmd.ID)
	if got.Status != models.CommandExecuted {
		t.Errorf("status = %s", got.Status)
	}
}

func TestHandshakeInactiveDeviceGetsNoCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.device(t, "OFF1", models.ConnectionPush)
	f.commands.Enqueue(ctx, d.ID, models.CommandReboot, "")
	if err := f.registry.Deactivate(d.ID); err != nil {
		t.Fatal(err)
	}

	if reply := f.gateway.Handshake(ctx, HandshakeRequest{Serial: "OFF1", Poll: true}); reply != ReplyOK {
		t.Errorf("reply = %q", reply)
	}
	next, _ := f.commands.NextPending(ctx, d.ID)
	if next == nil {
		t.Error("command consumed by inactive device")
	}
}

func TestTruncatedPushReportsIngestError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body := "1001\t2024-03-05 09:07:00\t0\t1\t0\t0\n" +
		"1002\t2024-03-05 09:12:00\t0\t1\t0\t0\n" +
		"10"

	res := f.gateway.Push(ctx, PushRequest{Serial: "PUSH8", Table: "ATTLOG", Body: body, Truncated: true})
	if res.Received != 2 || res.Inserted != 2 || res.Failed != 0 {
		t.Fatalf("truncated push = %+v", res)
	}
	if n := f.notifier.count(EventIngestError); n != 1 {
		t.Errorf("ingest_error events = %d, want 1", n)
	}
}

func TestPushAttendanceDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body := "1001\t2024-03-05 09:07:00\t0\t1\t0\t0\n" +
		"1002\t2024-03-05 09:12:00\t0\t1\t0\t0\n" +
		"garbage\n"

	res := f.gateway.Push(ctx, PushRequest{Serial: "PUSH9", Table: "ATTLOG", Body: body})
	if res.Received != 3 || res.Inserted != 2 || res.Failed != 1 || res.Skipped != 0 {
		t.Fatalf("first push = %+v", res)
	}
	res = f.gateway.Push(ctx, PushRequest{Serial: "PUSH9", Table: "ATTLOG", Body: body})
	if res.Inserted != 0 || res.Skipped != 2 {
		t.Fatalf("replayed push = %+v", res)
	}

	punches, total, _ := f.ledger.ListPunches(ctx, PunchFilter{SubjectID: "1001"})
	if total != 1 || !punches[0].PunchTime.Equal(at(tuesday, 9, 7)) {
		t.Errorf("punches = %+v", punches)
	}
}

func TestPushUserInfoIsCreateOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.gateway.Push(ctx, PushRequest{Serial: "U1", Table: "OPERLOG", Body: "USER PIN=42\tName=Alice\tPri=0"})
	if res.Inserted != 1 {
		t.Fatalf("push = %+v", res)
	}
	res = f.gateway.Push(ctx, PushRequest{Serial: "U1", Table: "USERINFO", Body: "USER PIN=42\tName=Changed\tPri=14"})
	if res.Inserted != 0 || res.Skipped != 1 {
		t.Fatalf("second push = %+v", res)
	}
}

func TestPushUnknownTableIsSkipped(t *testing.T) {
	f := newFixture(t)
	res := f.gateway.Push(context.Background(), PushRequest{Serial: "X1", Table: "WHATEVER", Body: "a\nb\n"})
	if res.Skipped != 2 || res.Inserted != 0 || res.Failed != 0 {
		t.Errorf("push = %+v", res)
	}
	// 设备仍被登记
	if _, err := f.registry.GetBySerial("X1"); err != nil {
		t.Errorf("device not registered: %v", err)
	}
}

func TestPushOptionsUpdatesCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.gateway.Push(ctx, PushRequest{Serial: "OPT1", Table: "options", Body: "UserCount=12,FWVersion=Ver 6.60,MAC=00:17:61:aa:bb:cc"})
	if res.Inserted != 3 {
		t.Fatalf("push = %+v", res)
	}
	d, _ := f.registry.GetBySerial("OPT1")
	if d.UserCount != 12 || d.FirmwareVersion != "Ver 6.60" || d.MACAddress == "" {
		t.Errorf("device = %+v", d)
	}
}
