// SPDX-License-Identifier: MPL-2.0

// Package cli contains CLI integration tests using testscript.
//
// TestMain builds the modular binary once; every script in testdata runs it
// against a throwaway module written from the script's archive.
package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	// binaryPath is the path to the built modular binary.
	binaryPath string
	// projectRoot is the path to the modular project root.
	projectRoot string
	// goEnv holds the go command settings scripts need to build programs
	// against the modular module without network access.
	goEnv map[string]string
)

// goEnvKeys are passed from the host go command into every script.
var goEnvKeys = []string{"GOPATH", "GOMODCACHE", "GOCACHE", "GOPROXY", "GOSUMDB", "GONOSUMDB", "GOPRIVATE", "GOTOOLCHAIN"}

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	wd, err := os.Getwd()
	if err != nil {
		panic("failed to get working directory: " + err.Error())
	}

	// Walk up to find go.mod
	projectRoot = wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}

	binDir, err := os.MkdirTemp("", "modular-cli-*")
	if err != nil {
		panic("failed to create bin directory: " + err.Error())
	}
	defer os.RemoveAll(binDir)

	binaryName := "modular"
	if runtime.GOOS == "windows" {
		binaryName = "modular.exe"
	}
	binaryPath = filepath.Join(binDir, binaryName)

	cmd := exec.CommandContext(context.Background(), "go", "build", "-o", binaryPath, ".")
	cmd.Dir = projectRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build modular: " + err.Error())
	}

	if goEnv, err = readGoEnv(projectRoot); err != nil {
		panic("failed to read go env: " + err.Error())
	}

	return m.Run()
}

func readGoEnv(dir string) (map[string]string, error) {
	cmd := exec.CommandContext(context.Background(), "go", append([]string{"env", "-json"}, goEnvKeys...)...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	env := make(map[string]string, len(goEnvKeys))
	if err := json.Unmarshal(out, &env); err != nil {
		return nil, err
	}
	return env, nil
}

// TestCLI runs all testscript tests in the testdata directory.
func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			binDir := filepath.Dir(binaryPath)
			env.Setenv("PATH", binDir+string(os.PathListSeparator)+env.Getenv("PATH"))
			// Keep the user's config file out of the scripts.
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, ".config"))
			env.Setenv("NO_COLOR", "1")
			// Scripts that build programs replace the modular module with
			// this checkout.
			env.Setenv("REPO_ROOT", projectRoot)
			for _, k := range goEnvKeys {
				if v := goEnv[k]; v != "" {
					env.Setenv(k, v)
				}
			}
			return nil
		},
		ContinueOnError: true,
	})
}
