package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manifoldco/promptui"

	"github.com/roamvpn/roam/lib/netkey"
)

// scriptedPrompter answers prompts from a fixed list, skipping answers the
// validator rejects the way an interactive prompt would re-ask.
type scriptedPrompter struct {
	answers  []string
	asked    []string
	rejected int
}

func (p *scriptedPrompter) Ask(label, def string, validate func(string) error) (string, error) {
	p.asked = append(p.asked, label)
	for len(p.answers) > 0 {
		answer := p.answers[0]
		p.answers = p.answers[1:]
		if err := validate(answer); err != nil {
			p.rejected++
			continue
		}
		return answer, nil
	}
	return "", promptui.ErrEOF
}

type noPrompter struct{ t *testing.T }

func (p noPrompter) Ask(label, _ string, _ func(string) error) (string, error) {
	p.t.Errorf("unexpected prompt %q", label)
	return "", errors.New("unexpected prompt")
}

func runCLI(t *testing.T, dataDir string, p prompter, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{
		"-config", filepath.Join(dataDir, "config.toml"),
		"-data-dir", dataDir,
	}, args...)
	code := run(full, &stdout, &stderr, p)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-version"}, &stdout, &stderr, noPrompter{t}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "roam version ") {
		t.Errorf("unexpected version output %q", stdout.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, t.TempDir(), noPrompter{t}, "frobnicate")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "Unknown command") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_NewWithFlags(t *testing.T) {
	dir := t.TempDir()
	code, stdout, stderr := runCLI(t, dir, noPrompter{t}, "new", "-name", "office", "-subnet", "10.4.0.0/16")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "10.4.0.0/16") {
		t.Errorf("output should mention the subnet: %s", stdout)
	}

	code, _, stderr = runCLI(t, dir, noPrompter{t}, "new", "-name", "office", "-subnet", "")
	if code != 1 || !strings.Contains(stderr, "-force") {
		t.Errorf("second new should be refused, code=%d stderr=%s", code, stderr)
	}

	code, _, stderr = runCLI(t, dir, noPrompter{t}, "new", "-name", "office", "-subnet", "", "-force")
	if code != 0 {
		t.Errorf("new -force failed, code=%d stderr=%s", code, stderr)
	}
}

func TestRun_NewPromptsForMissingValues(t *testing.T) {
	dir := t.TempDir()
	p := &scriptedPrompter{answers: []string{
		"   ",             // rejected: blank name
		"lab",             // accepted name
		"192.168.1.1/64",  // rejected: prefix too large
		"192.168.1.1",     // rejected: missing CIDR
		"192.168.50.0/24", // accepted subnet
	}}

	code, stdout, stderr := runCLI(t, dir, p, "new")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if len(p.asked) != 2 {
		t.Errorf("expected one prompt per field, got %v", p.asked)
	}
	if p.rejected != 3 {
		t.Errorf("rejected answers = %d, want 3", p.rejected)
	}
	if !strings.Contains(stdout, "192.168.50.0/24") {
		t.Errorf("output should mention the subnet: %s", stdout)
	}
}

func TestRun_NewPromptAborted(t *testing.T) {
	code, _, stderr := runCLI(t, t.TempDir(), &scriptedPrompter{}, "new")
	if code != 130 {
		t.Errorf("exit code = %d, want 130", code)
	}
	if !strings.Contains(stderr, "Aborted") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_ConnectStrictDecode(t *testing.T) {
	t.Setenv("ROAM_STRICT_DECODE", "true")

	code, _, stderr := runCLI(t, t.TempDir(), noPrompter{t}, "connect", "accs:bad!")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "key:") {
		t.Errorf("stderr = %q", stderr)
	}

	code, stdout, _ := runCLI(t, t.TempDir(), noPrompter{t}, "connect", "accs:scrt")
	if code != 0 || !strings.Contains(stdout, "join and control") {
		t.Errorf("valid token under strict decoding: code=%d out=%s", code, stdout)
	}
}

func TestRun_NewReportsAllFlagErrors(t *testing.T) {
	code, _, stderr := runCLI(t, t.TempDir(), noPrompter{t}, "new", "-name", "   x", "-subnet", "10.0.0.0/31")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if strings.Contains(stderr, "multiple validation errors") {
		t.Errorf("a single bad flag should be reported alone: %s", stderr)
	}

	code, _, stderr = runCLI(t, t.TempDir(), noPrompter{t}, "new", "-name", strings.Repeat("n", 200), "-subnet", "10.0.0.0/31")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "multiple validation errors") ||
		!strings.Contains(stderr, "name:") || !strings.Contains(stderr, "cidr") {
		t.Errorf("both bad flags should be reported: %s", stderr)
	}
}

func TestRun_ListAndShow(t *testing.T) {
	dir := t.TempDir()
	code, stdout, _ := runCLI(t, dir, noPrompter{t}, "list")
	if code != 0 || !strings.Contains(stdout, "No networks") {
		t.Fatalf("empty list: code=%d out=%s", code, stdout)
	}

	if code, _, stderr := runCLI(t, dir, noPrompter{t}, "new", "-name", "home", "-subnet", "fd00::/64"); code != 0 {
		t.Fatalf("new failed: %s", stderr)
	}

	code, stdout, _ = runCLI(t, dir, noPrompter{t}, "list")
	if code != 0 || !strings.Contains(stdout, "home") || !strings.Contains(stdout, "owner") {
		t.Errorf("list output = %s", stdout)
	}

	code, stdout, _ = runCLI(t, dir, noPrompter{t}, "show", "home")
	if code != 0 {
		t.Fatalf("show failed with code %d", code)
	}
	var rec struct {
		Name        string `json:"name"`
		Key         string `json:"key"`
		NetworkAddr string `json:"network_addr"`
		CIDR        uint8  `json:"cidr"`
	}
	if err := json.Unmarshal([]byte(stdout), &rec); err != nil {
		t.Fatalf("show output is not a record: %v\n%s", err, stdout)
	}
	if strings.Contains(rec.Key, netkey.Separator) {
		t.Error("show should withhold the secret key by default")
	}
	if rec.NetworkAddr != "fd00::" || rec.CIDR != 64 {
		t.Errorf("unexpected record %+v", rec)
	}

	_, stdout, _ = runCLI(t, dir, noPrompter{t}, "show", "-reveal", "home")
	if !strings.Contains(stdout, netkey.Separator) {
		t.Error("show -reveal should include the secret key")
	}

	code, _, _ = runCLI(t, dir, noPrompter{t}, "show", "missing")
	if code != 1 {
		t.Errorf("show of a missing network: code = %d, want 1", code)
	}
}

func TestRun_Connect(t *testing.T) {
	key, err := netkey.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantOut  string
	}{
		{"controller token", netkey.Encode(key), 0, "join and control"},
		{"access token", netkey.Encode(key.AccessOnly()), 0, key.Fingerprint()},
		{"undecodable secret segment skipped", "accs:bad!", 0, "Grants:       join\n"},
		{"no decodable segment", "not a token", 1, ""},
		{"undecodable", "a", 1, ""},
		{"empty", "", 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, t.TempDir(), noPrompter{t}, "connect", tt.token)
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d", code, tt.wantCode)
			}
			if tt.wantOut != "" && !strings.Contains(stdout, tt.wantOut) {
				t.Errorf("stdout = %q, want it to contain %q", stdout, tt.wantOut)
			}
		})
	}
}
