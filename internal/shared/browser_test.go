package shared

import (
	"strings"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	tt := []struct {
		platform string
		program  string
		wantErr  bool
	}{
		{platform: "darwin", program: "open"},
		{platform: "linux", program: "xdg-open"},
		{platform: "freebsd", program: "xdg-open"},
		{platform: "windows", program: "rundll32"},
		{platform: "plan9", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.platform, func(t *testing.T) {
			cmd, err := browserCommand(tc.platform, "https://example.com")
			if (err != nil) != tc.wantErr {
				t.Fatalf("browserCommand() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}

			if !strings.HasSuffix(cmd.Args[0], tc.program) {
				t.Errorf("expected program %s, got %s", tc.program, cmd.Args[0])
			}
			if cmd.Args[len(cmd.Args)-1] != "https://example.com" {
				t.Errorf("expected url as last argument, got %v", cmd.Args)
			}
		})
	}

	t.Run("OpenBrowser unsupported platform", func(t *testing.T) {
		orig := getRuntime
		defer func() { getRuntime = orig }()
		getRuntime = func() string { return "plan9" }

		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
