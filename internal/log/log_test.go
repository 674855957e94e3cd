package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if got := parseLevel(lvl).String(); got != lvl {
			t.Errorf("parseLevel(%q) = %q", lvl, got)
		}
	}
	if got := parseLevel("bogus").String(); got != "info" {
		t.Errorf("parseLevel(bogus) = %q, want info", got)
	}
}

func TestComponentLoggers(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	defer Init("info", false, "")

	Balance.Info().Int("addresses", 3).Msg("wallet balance")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if rec["component"] != "balance" {
		t.Errorf("component = %v, want balance", rec["component"])
	}
	if rec["addresses"] != float64(3) {
		t.Errorf("addresses = %v, want 3", rec["addresses"])
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn")
	defer Init("info", false, "")

	Purse.Info().Msg("hidden")
	Purse.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn line missing")
	}
}

func TestWithNetwork(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	defer Init("info", false, "")

	l := WithNetwork("testnet")
	l.Debug().Msg("opened")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if rec["network"] != "testnet" {
		t.Errorf("network = %v, want testnet", rec["network"])
	}
}
