// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Fantom-foundation/storeguard/database/lock"
	"github.com/Fantom-foundation/storeguard/database/store"
	"github.com/Fantom-foundation/storeguard/database/store/inspect"
)

// runAsToolEnv makes the test binary behave like the tool binary, which is
// used by tests running the tool in a separate process.
const runAsToolEnv = "STORE_TOOL_RUN_AS_TOOL"

func TestMain(m *testing.M) {
	if os.Getenv(runAsToolEnv) != "" {
		os.Exit(run(lock.NewRegistry(), os.Args, os.Stdout, os.Stderr))
	}
	os.Exit(m.Run())
}

func TestStoreInfo_StoreOpenedByOtherProcess_FailsWithInUseMessage(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewOpener(lock.NewRegistry()).Open(dir, store.SmallConfig)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	code, _, stderr := runInSeparateProcess(t, "store-info", "--store", dir)
	if code != 1 {
		t.Errorf("unexpected exit code, wanted 1, got %d", code)
	}
	firstLine := strings.SplitN(stderr, "\n", 2)[0]
	if !strings.Contains(firstLine, "the database is in use") {
		t.Errorf("error output lacks stable phrase: %q", stderr)
	}
}

func TestStoreInfo_StoreOpenedInSameProcess_FailsWithAlreadyOpenError(t *testing.T) {
	dir := t.TempDir()
	registry := lock.NewRegistry()
	s, err := store.NewOpener(registry).Open(dir, store.SmallConfig)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	var stdout, stderr bytes.Buffer
	err = newApp(registry, &stdout, &stderr).Run([]string{"store-tool", "store-info", "--store", dir})
	if !errors.Is(err, store.ErrAlreadyOpenInProcess) {
		t.Fatalf("unexpected error, wanted %v, got %v", store.ErrAlreadyOpenInProcess, err)
	}
	if !errors.Is(err, lock.ErrAlreadyHeldBySelf) {
		t.Errorf("cause should identify a lock ownership conflict, got %v", err)
	}
	if errors.Is(err, store.ErrStoreInUse) {
		t.Errorf("same-process conflict must not be reported as store in use: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("no report should be printed, got %s", stdout.String())
	}

	// the open store is not affected
	if err := s.Put([]byte("k"), []byte("v")); err != nil {
		t.Errorf("open store should remain usable: %v", err)
	}
}

func TestStoreInfo_FreeStore_PrintsReportAndReleasesLock(t *testing.T) {
	dir := t.TempDir()
	createStore(t, dir)

	code, stdout, stderr := runInSeparateProcess(t, "store-info", "--store", dir)
	if code != 0 {
		t.Fatalf("unexpected exit code %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Directory contains a store with the following properties") {
		t.Errorf("missing report in output: %s", stdout)
	}

	code, stdout, stderr = runInSeparateProcess(t, "lock-status", "--store", dir)
	if code != 0 {
		t.Fatalf("unexpected exit code %d, stderr: %s", code, stderr)
	}
	if want, got := "free", strings.TrimSpace(stdout); want != got {
		t.Errorf("unexpected lock status, wanted %s, got %s", want, got)
	}

	handle, err := lock.NewRegistry().Acquire(dir)
	if err != nil {
		t.Fatalf("store should be free after inspection: %v", err)
	}
	if err := handle.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}
}

func TestStoreInfo_CanBeRepeatedInSameProcess(t *testing.T) {
	dir := t.TempDir()
	createStore(t, dir)
	registry := lock.NewRegistry()

	var outputs []string
	for i := 0; i < 2; i++ {
		var stdout, stderr bytes.Buffer
		if code := run(registry, []string{"store-tool", "store-info", "--store", dir}, &stdout, &stderr); code != 0 {
			t.Fatalf("unexpected exit code %d, stderr: %s", code, stderr.String())
		}
		outputs = append(outputs, stdout.String())
	}
	if outputs[0] != outputs[1] {
		t.Errorf("repeated inspection produced different reports:\n%s\n%s", outputs[0], outputs[1])
	}
	if got := registry.Held(); len(got) != 0 {
		t.Errorf("no lock should be retained, held: %v", got)
	}
}

func TestStoreInfo_JsonReportCanBeParsed(t *testing.T) {
	dir := t.TempDir()
	registry := lock.NewRegistry()
	var stdout, stderr bytes.Buffer
	for _, args := range [][]string{
		{"store-tool", "init", "--store", dir, "--config", store.SmallConfig.Name},
		{"store-tool", "put", "--store", dir, "key", "value"},
	} {
		if code := run(registry, args, &stdout, &stderr); code != 0 {
			t.Fatalf("failed to run %v: %s", args, stderr.String())
		}
	}

	stdout.Reset()
	if code := run(registry, []string{"store-tool", "store-info", "--store", dir, "--json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("unexpected exit code %d, stderr: %s", code, stderr.String())
	}

	var report inspect.Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("failed to parse report: %v\n%s", err, stdout.String())
	}
	if report.Entries != 1 || report.KeyBytes != 3 || report.ValueBytes != 5 {
		t.Errorf("unexpected content statistics: %+v", report)
	}
	if report.Configuration != store.SmallConfig.Name || !report.Clean {
		t.Errorf("unexpected store properties: %+v", report)
	}
}

func TestStoreInfo_MissingStoreFlag_Fails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(lock.NewRegistry(), []string{"store-tool", "store-info"}, &stdout, &stderr); code != 1 {
		t.Errorf("unexpected exit code, wanted 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "store") {
		t.Errorf("error should name missing flag, got %q", stderr.String())
	}
}

func TestStoreInfo_CorruptStore_Fails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, store.MetadataFileName), []byte("garbage"), 0600); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}
	registry := lock.NewRegistry()
	var stdout, stderr bytes.Buffer
	err := newApp(registry, &stdout, &stderr).Run([]string{"store-tool", "store-info", "--store", dir})
	if !errors.Is(err, store.ErrCorruptStore) {
		t.Errorf("unexpected error, wanted %v, got %v", store.ErrCorruptStore, err)
	}
	if got := registry.Held(); len(got) != 0 {
		t.Errorf("no lock should be retained, held: %v", got)
	}
}

func TestInit_UnknownConfiguration_Fails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	var stdout, stderr bytes.Buffer
	if code := run(lock.NewRegistry(), []string{"store-tool", "init", "--store", dir, "--config", "unknown"}, &stdout, &stderr); code != 1 {
		t.Errorf("unexpected exit code, wanted 1, got %d", code)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("no store should be created: %v", err)
	}
}

func TestPut_MissingStore_Fails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(lock.NewRegistry(), []string{"store-tool", "put", "--store", t.TempDir(), "k", "v"}, &stdout, &stderr); code != 1 {
		t.Errorf("unexpected exit code, wanted 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "run init first") {
		t.Errorf("unexpected error output: %q", stderr.String())
	}
}

func TestLockStatus_ReportsOwnership(t *testing.T) {
	dir := t.TempDir()
	registry := lock.NewRegistry()
	s, err := store.NewOpener(registry).Open(dir, store.SmallConfig)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	var stdout, stderr bytes.Buffer
	if code := run(registry, []string{"store-tool", "lock-status", "--store", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("unexpected exit code %d, stderr: %s", code, stderr.String())
	}
	if want, got := "held-by-self", strings.TrimSpace(stdout.String()); want != got {
		t.Errorf("unexpected lock status, wanted %s, got %s", want, got)
	}

	code, out, errOut := runInSeparateProcess(t, "lock-status", "--store", dir)
	if code != 0 {
		t.Fatalf("unexpected exit code %d, stderr: %s", code, errOut)
	}
	if want, got := "held-by-other", strings.TrimSpace(out); want != got {
		t.Errorf("unexpected lock status, wanted %s, got %s", want, got)
	}
}

func TestCpuProfile_IsWrittenIfRequested(t *testing.T) {
	dir := t.TempDir()
	createStore(t, dir)
	profile := filepath.Join(t.TempDir(), "cpu.prof")

	var stdout, stderr bytes.Buffer
	args := []string{"store-tool", "--cpuprofile", profile, "store-info", "--store", dir}
	if code := run(lock.NewRegistry(), args, &stdout, &stderr); code != 0 {
		t.Fatalf("unexpected exit code %d, stderr: %s", code, stderr.String())
	}
	if _, err := os.Stat(profile); err != nil {
		t.Errorf("profile was not written: %v", err)
	}
	if !strings.Contains(stderr.String(), "recorded CPU profile to "+profile) {
		t.Errorf("missing profiling notice in %q", stderr.String())
	}
}

func TestCpuProfile_ErrorIsFirstLineOfFailingCommand(t *testing.T) {
	dir := t.TempDir()
	createStore(t, dir)
	profile := filepath.Join(t.TempDir(), "cpu.prof")

	other, err := store.NewOpener(lock.NewRegistry()).Open(dir, store.SmallConfig)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer other.Close()

	var stdout, stderr bytes.Buffer
	args := []string{"store-tool", "--cpuprofile", profile, "store-info", "--store", dir}
	if code := run(lock.NewRegistry(), args, &stdout, &stderr); code != 1 {
		t.Errorf("unexpected exit code, wanted 1, got %d", code)
	}
	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "the database is in use") {
		t.Errorf("unexpected error output: %q", stderr.String())
	}
	if _, err := os.Stat(profile); err != nil {
		t.Errorf("profile was not written: %v", err)
	}
}

func TestPut_UnknownConfigurationInMetadata_IsReportedAsCorrupt(t *testing.T) {
	dir := t.TempDir()
	createStore(t, dir)
	metadata := []byte(`{"Format":"storeguard","Version":1,"Configuration":"bogus","Layout":"leveldb"}`)
	if err := os.WriteFile(filepath.Join(dir, store.MetadataFileName), metadata, 0600); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run(lock.NewRegistry(), []string{"store-tool", "put", "--store", dir, "k", "v"}, &stdout, &stderr); code != 1 {
		t.Errorf("unexpected exit code, wanted 1, got %d", code)
	}
	want := store.ErrCorruptStore.Error() + `: unknown store configuration: "bogus"`
	if got := strings.TrimSpace(stderr.String()); want != got {
		t.Errorf("unexpected error output, wanted %q, got %q", want, got)
	}
}

func createStore(t *testing.T, dir string) {
	t.Helper()
	s, err := store.NewOpener(lock.NewRegistry()).Open(dir, store.SmallConfig)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := s.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("failed to write to store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func runInSeparateProcess(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	path, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to resolve path to test binary: %v", err)
	}

	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), runAsToolEnv+"=1")
	stdBuf := new(bytes.Buffer)
	cmd.Stdout = stdBuf
	errBuf := new(bytes.Buffer)
	cmd.Stderr = errBuf

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), stdBuf.String(), errBuf.String()
	}
	if err != nil {
		t.Fatalf("failed to run sub-process: %v", err)
	}
	return 0, stdBuf.String(), errBuf.String()
}
