package adms

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oleeahmmed/hrm/internal/domain/models"
)

// WireCommand converts a queued command into the text the terminal
// executes. now is embedded by kinds that carry the current time.
func WireCommand(kind models.CommandKind, content string, now time.Time) (string, error) {
	content = strings.TrimSpace(content)
	switch kind {
	case models.CommandReboot:
		return "REBOOT", nil
	case models.CommandClearLog:
		return "CLEAR LOG", nil
	case models.CommandClearData:
		return "CLEAR DATA", nil
	case models.CommandClearPhoto:
		return "CLEAR PHOTO", nil
	case models.CommandSyncTime:
		return fmt.Sprintf("SET OPTIONS DateTime=%d", now.Unix()), nil
	case models.CommandGetDeviceInfo:
		return "INFO", nil
	case models.CommandHealthCheck:
		return "CHECK", nil
	case models.CommandFetchUsers:
		return "DATA QUERY USERINFO", nil
	case models.CommandFetchLogs:
		start, end, err := logRange(content, now)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("DATA QUERY ATTLOG StartTime=%s\tEndTime=%s", start, end), nil
	case models.CommandUpsertUser:
		if content == "" {
			return "", fmt.Errorf("upsert_user requires user fields")
		}
		return "DATA UPDATE USERINFO " + content, nil
	case models.CommandDeleteUser:
		if content == "" {
			return "", fmt.Errorf("delete_user requires a PIN")
		}
		return "DATA DELETE USERINFO PIN=" + strings.TrimPrefix(content, "PIN="), nil
	case models.CommandSetOption:
		if content == "" {
			return "", fmt.Errorf("set_option requires key=value")
		}
		return "SET OPTIONS " + content, nil
	}
	return "", fmt.Errorf("unknown command kind %q", kind)
}

// logRange reads "start,end" from content. An empty content asks for the
// last 24 hours.
func logRange(content string, now time.Time) (string, string, error) {
	if content == "" {
		return now.Add(-24 * time.Hour).Format(TimeLayout), now.Format(TimeLayout), nil
	}
	start, end, ok := strings.Cut(content, ",")
	if !ok {
		return "", "", fmt.Errorf("fetch_logs content must be \"start,end\"")
	}
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	for _, v := range []string{start, end} {
		if _, err := time.Parse(TimeLayout, v); err != nil {
			return "", "", fmt.Errorf("fetch_logs time %q: %w", v, err)
		}
	}
	return start, end, nil
}

// FormatCommand renders the getrequest reply for one command.
func FormatCommand(correlationID string, kind models.CommandKind, content string, now time.Time) (string, error) {
	wire, err := WireCommand(kind, content, now)
	if err != nil {
		return "", err
	}
	return "C:" + correlationID + ":" + wire, nil
}

// Ack is one line of a devicecmd body.
type Ack struct {
	ID     string
	Return int
	Cmd    string
	Raw    string
}

// Succeeded reports whether the terminal executed the command.
func (a Ack) Succeeded() bool { return a.Return >= 0 }

// ParseAcks reads "ID=..&Return=..&CMD=.." lines. Lines without an ID
// or with a non-numeric Return are dropped.
func ParseAcks(body string) []Ack {
	var acks []Ack
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		values, err := url.ParseQuery(line)
		if err != nil {
			continue
		}
		id := strings.TrimSpace(values.Get("ID"))
		if id == "" {
			continue
		}
		ret, err := strconv.Atoi(strings.TrimSpace(values.Get("Return")))
		if err != nil {
			continue
		}
		acks = append(acks, Ack{ID: id, Return: ret, Cmd: values.Get("CMD"), Raw: line})
	}
	return acks
}
