package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/oleeahmmed/hrm/internal/domain/services/container"
)

func noOpen() (*container.ServiceContainer, func(), error) {
	return nil, nil, errors.New("should not open")
}

func TestDispatchUsage(t *testing.T) {
	cases := [][]string{
		{},
		{"unknown"},
		{"config"},
		{"config", "export"},
		{"sync", "--bogus"},
	}
	for _, args := range cases {
		err := dispatch(args, &bytes.Buffer{}, noOpen)
		if !errors.Is(err, errUsage) {
			t.Errorf("dispatch(%v) = %v, want usage error", args, err)
		}
	}
}

func TestDispatchHelp(t *testing.T) {
	var out bytes.Buffer
	if err := dispatch([]string{"help"}, &out, noOpen); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "attendctl sync") {
		t.Errorf("help output missing usage: %q", out.String())
	}
}

func TestRangeFlags(t *testing.T) {
	flags := pflag.NewFlagSet("attendance", pflag.ContinueOnError)
	rng := addRangeFlags(flags)
	if err := flags.Parse([]string{"--scope", "factory", "--days", "7"}); err != nil {
		t.Fatal(err)
	}
	req, err := rng.request(flags)
	if err != nil {
		t.Fatal(err)
	}
	if req.Scope != "factory" || req.Days == nil || *req.Days != 7 {
		t.Errorf("request = %+v", req)
	}

	flags = pflag.NewFlagSet("attendance", pflag.ContinueOnError)
	rng = addRangeFlags(flags)
	if err := flags.Parse([]string{"--from", "2024-05-01", "--to", "2024-05-31"}); err != nil {
		t.Fatal(err)
	}
	req, err = rng.request(flags)
	if err != nil {
		t.Fatal(err)
	}
	if req.Days != nil || req.From.Day() != 1 || req.To.Day() != 31 {
		t.Errorf("request = %+v", req)
	}

	flags = pflag.NewFlagSet("attendance", pflag.ContinueOnError)
	rng = addRangeFlags(flags)
	_ = flags.Parse([]string{"--from", "2024-05-01", "--to", "2024-05-31", "--days", "3"})
	if _, err := rng.request(flags); !errors.Is(err, errUsage) {
		t.Errorf("mixed range error = %v, want usage", err)
	}

	flags = pflag.NewFlagSet("attendance", pflag.ContinueOnError)
	rng = addRangeFlags(flags)
	_ = flags.Parse([]string{"--from", "May 1", "--to", "2024-05-31"})
	if _, err := rng.request(flags); !errors.Is(err, errUsage) {
		t.Errorf("bad date error = %v, want usage", err)
	}
}
