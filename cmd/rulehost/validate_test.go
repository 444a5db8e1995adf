package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/b3ckham/Orchestrator/pkg/cli"
)

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestRunValidate(t *testing.T) {
	dup := t.TempDir()
	copyFile(t, "testdata/rules/kyc.yaml", filepath.Join(dup, "kyc.yaml"))
	copyFile(t, "testdata/rules/kyc.yaml", filepath.Join(dup, "nested", "kyc.yaml"))

	tests := []struct {
		name       string
		args       []string
		wantFailed int
		contains   []string
	}{
		{
			name:     "valid directory",
			args:     []string{"testdata/rules"},
			contains: []string{"kyc.yaml (kyc, 1 rules)", "2 valid, 0 invalid"},
		},
		{
			name:     "single file",
			args:     []string{"testdata/rules/wallet.yaml"},
			contains: []string{"1 valid, 0 invalid"},
		},
		{
			name:       "unknown enum literal",
			args:       []string{"testdata/invalid"},
			wantFailed: 1,
			contains:   []string{"kyc-typo.yaml", `unknown value "Hihg"`},
		},
		{
			name:       "mixed",
			args:       []string{"testdata/rules", "testdata/invalid/kyc-typo.yaml"},
			wantFailed: 1,
			contains:   []string{"2 valid, 1 invalid"},
		},
		{
			name:       "nonexistent file",
			args:       []string{"testdata/nonexistent.yaml"},
			wantFailed: 1,
			contains:   []string{"file not found"},
		},
		{
			name:       "duplicate rule set name",
			args:       []string{dup},
			wantFailed: 1,
			contains:   []string{`rule set "kyc" is already defined`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validateFlags.format = "text"
			var buf bytes.Buffer

			err := runValidate(context.Background(), &buf, tt.args)

			var failed *cli.ValidationFailedError
			switch {
			case tt.wantFailed == 0 && err != nil:
				t.Fatalf("runValidate() error = %v\n%s", err, buf.String())
			case tt.wantFailed > 0 && !errors.As(err, &failed):
				t.Fatalf("runValidate() error = %v, want *cli.ValidationFailedError", err)
			case tt.wantFailed > 0 && failed.Failed != tt.wantFailed:
				t.Errorf("Failed = %d, want %d", failed.Failed, tt.wantFailed)
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output = %q, want it to contain %q", buf.String(), want)
				}
			}
		})
	}
}

func TestRunValidate_JSON(t *testing.T) {
	validateFlags.format = "json"
	defer func() { validateFlags.format = "text" }()
	var buf bytes.Buffer

	err := runValidate(context.Background(), &buf, []string{"testdata/rules", "testdata/invalid"})
	if err == nil {
		t.Fatal("runValidate() succeeded with an invalid file")
	}

	var report ValidationReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if report.Valid != 2 || report.Invalid != 1 || len(report.Files) != 3 {
		t.Errorf("report = %+v", report)
	}
	for _, f := range report.Files {
		if !f.Valid && len(f.Errors) == 0 {
			t.Errorf("invalid file %s has no errors", f.File)
		}
	}
}

func TestRunValidate_BadFormat(t *testing.T) {
	validateFlags.format = "csv"
	defer func() { validateFlags.format = "text" }()

	if err := runValidate(context.Background(), &bytes.Buffer{}, []string{"testdata/rules"}); err == nil {
		t.Error("runValidate() accepted an unsupported format")
	}
}

func TestRunValidate_EmptyDirectory(t *testing.T) {
	validateFlags.format = "text"
	err := runValidate(context.Background(), &bytes.Buffer{}, []string{t.TempDir()})
	var cmdErr *cli.CommandError
	if !errors.As(err, &cmdErr) {
		t.Errorf("runValidate() error = %v, want *cli.CommandError", err)
	}
}
