// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/daylightnebula/modular/internal/config"
	"github.com/daylightnebula/modular/internal/testutil"
	"github.com/daylightnebula/modular/pkg/fragment"
)

// stubProvider returns a fixed configuration.
type stubProvider struct {
	cfg  *config.Config
	path string
	err  error
}

func (p *stubProvider) Load(context.Context, config.LoadOptions) (*config.Config, string, error) {
	if p.err != nil {
		return nil, "", p.err
	}
	return p.cfg, p.path, nil
}

// runCLI executes the command tree with args and returns stdout, stderr
// and the error returned by cobra.
func runCLI(t *testing.T, provider config.Provider, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if provider == nil {
		provider = &stubProvider{cfg: config.DefaultConfig()}
	}
	app := NewApp(Dependencies{Config: provider, Stdout: &stdout, Stderr: &stderr})
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

// writeClasspathDir writes a classpath directory with two fragments.
func writeClasspathDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	hooks := fragment.New()
	hooks.Append("example.com/app/events.OnStartup",
		fragment.NewDescriptor(fragment.KindStaticFunction, "example.com/app/hooks", "Setup").WithReason("package function"))
	conn := fragment.New()
	conn.Append("example.com/app/events.OnStartup",
		fragment.NewDescriptor(fragment.KindInstanceMethod, "example.com/app/hooks.Conn", "Open").Invalid("instance methods are not supported"))
	conn.Append("example.com/app/events.OnReload",
		fragment.NewDescriptor(fragment.KindStaticFunction, "example.com/app/hooks", "Reload"))

	for owner, f := range map[string]*fragment.Fragment{"example.com/app/hooks": hooks, "example.com/app/hooks.Conn": conn} {
		rel, err := fragment.ResourcePath(owner)
		if err != nil {
			t.Fatal(err)
		}
		data, err := fragment.Marshal(f)
		if err != nil {
			t.Fatal(err)
		}
		testutil.WriteFile(t, filepath.Join(dir, filepath.FromSlash(rel)), string(data))
	}
	testutil.WriteFile(t, filepath.Join(dir, "modular", "markers", "example.com", "app", "events.OnStartup"), "")
	return dir
}
