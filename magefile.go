//go:build mage

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	modulePath = "github.com/dkoosis/gbbench"
	binPath    = "./bin/gbbench"
)

// Default target - build the binary
var Default = Build

// Build builds the gbbench binary with version metadata
func Build() error {
	version := gitOutput("dev", "describe", "--tags", "--always", "--dirty", "--match=v*")
	commit := gitOutput("unknown", "rev-parse", "--short", "HEAD")
	date := time.Now().UTC().Format(time.RFC3339)

	ldflags := fmt.Sprintf("-s -w -X '%s/internal/version.Version=%s' -X '%s/internal/version.CommitHash=%s' -X '%s/internal/version.BuildDate=%s'",
		modulePath, version, modulePath, commit, modulePath, date)

	fmt.Println("Building gbbench...")
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", binPath, "./cmd/gbbench"); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	fmt.Printf("Built: %s\n", binPath)
	return nil
}

// Clean removes build artifacts
func Clean() error {
	return os.RemoveAll("./bin")
}

// QA runs vet and the race-enabled test suite
func QA() {
	mg.SerialDeps(Lint.Vet, Test.Race)
}

// Bench builds gbbench and runs it against the emulator checkout in $GBBENCH_ROOT
func Bench() error {
	mg.Deps(Build)
	root := os.Getenv("GBBENCH_ROOT")
	if root == "" {
		root = "."
	}
	return sh.RunV(binPath, "--root", root, "--default")
}

// Lint namespace for linting commands
type Lint mg.Namespace

// Vet runs go vet
func (Lint) Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Golangci runs golangci-lint
func (Lint) Golangci() error {
	return sh.RunV("golangci-lint", "run", "--timeout=5m", "./...")
}

// Test namespace for testing commands
type Test mg.Namespace

// All runs all tests
func (Test) All() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs tests with race detector
func (Test) Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Coverage runs tests with coverage
func (Test) Coverage() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

func gitOutput(fallback string, args ...string) string {
	out, err := sh.Output("git", args...)
	if err != nil || strings.TrimSpace(out) == "" {
		return fallback
	}
	return strings.TrimSpace(out)
}
