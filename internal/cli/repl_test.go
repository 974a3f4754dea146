package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeExec struct {
	unlocked bool

	calls []string
	args  []string
	err   error
}

func (f *fakeExec) record(name string, args ...string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args...)
	return f.err
}

func (f *fakeExec) isUnlocked() bool                          { return f.unlocked }
func (f *fakeExec) List(ctx context.Context) error            { return f.record("list") }
func (f *fakeExec) Next(ctx context.Context) error            { return f.record("next") }
func (f *fakeExec) Search(ctx context.Context, q string) error { return f.record("search", q) }
func (f *fakeExec) Sort(ctx context.Context, o string) error   { return f.record("sort", o) }
func (f *fakeExec) Add(ctx context.Context) error             { return f.record("add") }
func (f *fakeExec) Edit(ctx context.Context, id string) error  { return f.record("edit", id) }
func (f *fakeExec) Delete(ctx context.Context, id string) error {
	return f.record("delete", id)
}
func (f *fakeExec) Import(ctx context.Context, src string) error { return f.record("import", src) }
func (f *fakeExec) Export(ctx context.Context, dst string) error { return f.record("export", dst) }
func (f *fakeExec) QR(ctx context.Context, id, png string) error {
	return f.record("qr", id, png)
}
func (f *fakeExec) SetPIN(ctx context.Context) error      { return f.record("setpin") }
func (f *fakeExec) SetPassword(ctx context.Context) error { return f.record("setpassword") }
func (f *fakeExec) Disable(ctx context.Context) error     { return f.record("disable") }
func (f *fakeExec) Timeout(ctx context.Context, m string) error {
	return f.record("timeout", m)
}
func (f *fakeExec) Lock(ctx context.Context) error {
	f.unlocked = false
	return f.record("lock")
}
func (f *fakeExec) Unlock(ctx context.Context) error {
	f.unlocked = true
	return f.record("unlock")
}
func (f *fakeExec) NTP(ctx context.Context) error    { return f.record("ntp") }
func (f *fakeExec) Sync(ctx context.Context) error   { return f.record("sync") }
func (f *fakeExec) Backup(ctx context.Context) error { return f.record("backup") }

func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var out []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out = append(out, fmt.Sprint(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &out
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := capturePrint(t)

	input := strings.Join([]string{
		"help",
		"unlock",
		"help",
		"l",
		"list",
		"next",
		"search git hub",
		"sort desc",
		"add",
		"edit id-1",
		"delete id-2",
		"import backup.json",
		"export uri",
		"qr id-3",
		"qr id-3 code.png",
		"setpin",
		"setpassword",
		"timeout 5",
		"disable",
		"ntp",
		"sync",
		"backup",
		"lock",
		"foobar",
		"",
		"exit",
		"list",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	want := []string{
		"unlock", "list", "list", "next", "search", "sort", "add", "edit", "delete",
		"import", "export", "qr", "qr", "setpin", "setpassword", "timeout", "disable",
		"ntp", "sync", "backup", "lock",
	}
	if strings.Join(exec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls mismatch:\n got %v\nwant %v", exec.calls, want)
	}

	wantArgs := []string{"git hub", "desc", "id-1", "id-2", "backup.json", "uri", "id-3", "", "id-3", "code.png", "5"}
	if strings.Join(exec.args, ",") != strings.Join(wantArgs, ",") {
		t.Fatalf("args mismatch:\n got %v\nwant %v", exec.args, wantArgs)
	}

	joined := strings.Join(*out, "\n")
	for _, s := range []string{helpLocked, helpUnlocked, "Unknown command:foobar", "Bye!", "winotp (status)> "} {
		if !strings.Contains(joined, s) {
			t.Errorf("output lacks %q", s)
		}
	}
}

func TestRunREPL_UsageOnMissingArgs(t *testing.T) {
	out := capturePrint(t)

	input := "sort\nedit\ndelete\nimport\nexport\nqr\ntimeout\n"
	exec := &fakeExec{unlocked: true}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader(input)))

	if len(exec.calls) != 0 {
		t.Fatalf("expected no calls, got %v", exec.calls)
	}
	usages := 0
	for _, line := range *out {
		if strings.HasPrefix(line, "Usage:") {
			usages++
		}
	}
	if usages != 7 {
		t.Fatalf("expected 7 usage lines, got %d: %v", usages, *out)
	}
}

func TestRunREPL_PrintsHandlerErrors(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{err: errors.New("store is locked")}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("list")))

	if len(exec.calls) != 1 {
		t.Fatalf("expected the final line without newline to run, got %v", exec.calls)
	}
	if !strings.Contains(strings.Join(*out, "\n"), "Error:store is locked") {
		t.Fatalf("error not printed: %v", *out)
	}
}
