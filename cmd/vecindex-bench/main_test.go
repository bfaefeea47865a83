// Copyright (c) 2024 LevelGraph Go Contributors
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following
// conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestCLI_Help(t *testing.T) {
	var out, errOut bytes.Buffer
	cli := &CLI{Out: &out, Err: &errOut}

	exitCode := cli.Run([]string{"help"})
	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	if !strings.Contains(out.String(), "vecindex-bench") {
		t.Error("expected help output to contain 'vecindex-bench'")
	}
}

func TestCLI_NoArgs(t *testing.T) {
	var out, errOut bytes.Buffer
	cli := &CLI{Out: &out, Err: &errOut}

	exitCode := cli.Run([]string{})
	if exitCode != 1 {
		t.Errorf("expected exit code 1 for no args, got %d", exitCode)
	}
}

func TestCLI_UnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	cli := &CLI{Out: &out, Err: &errOut}

	exitCode := cli.Run([]string{"unknown"})
	if exitCode != 1 {
		t.Errorf("expected exit code 1 for unknown command, got %d", exitCode)
	}
	if !strings.Contains(errOut.String(), "Unknown command: unknown") {
		t.Errorf("expected error message about unknown command, got: %s", errOut.String())
	}
}

func TestCLI_HNSWSmallRun(t *testing.T) {
	var out, errOut bytes.Buffer
	cli := &CLI{Out: &out, Err: &errOut}

	exitCode := cli.Run([]string{"hnsw", "-n", "200", "-dims", "8", "-queries", "10", "-k", "5"})
	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", exitCode, errOut.String())
	}
	if !strings.Contains(out.String(), "recall@5:") {
		t.Errorf("expected output to report recall@5, got: %s", out.String())
	}
}

func TestCLI_PNIISmallRun(t *testing.T) {
	var out, errOut bytes.Buffer
	cli := &CLI{Out: &out, Err: &errOut}

	exitCode := cli.Run([]string{"pnii", "-n", "200", "-dims", "8", "-queries", "10", "-k", "5"})
	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", exitCode, errOut.String())
	}
	if !strings.Contains(out.String(), "recall@5:") {
		t.Errorf("expected output to report recall@5, got: %s", out.String())
	}
}

func TestCLI_HNSWDiskStaged(t *testing.T) {
	var out, errOut bytes.Buffer
	cli := &CLI{Out: &out, Err: &errOut}

	exitCode := cli.Run([]string{"hnsw", "-n", "200", "-dims", "8", "-queries", "10", "-k", "5", "-disk"})
	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", exitCode, errOut.String())
	}
	if !strings.Contains(out.String(), "recall@5:") {
		t.Errorf("expected output to report recall@5, got: %s", out.String())
	}
}

func TestCLI_PNIIDiskStaged(t *testing.T) {
	var out, errOut bytes.Buffer
	cli := &CLI{Out: &out, Err: &errOut}

	exitCode := cli.Run([]string{"pnii", "-n", "200", "-dims", "8", "-queries", "10", "-k", "5", "-disk"})
	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", exitCode, errOut.String())
	}
	if !strings.Contains(out.String(), "recall@5:") {
		t.Errorf("expected output to report recall@5, got: %s", out.String())
	}
}
