package core

import (
	"strings"
	"testing"
)

func TestVersionInfo(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() {
		Version, GitCommit = origVersion, origCommit
	}()

	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{
			name:    "local build without commit",
			version: "0.1.0",
			commit:  "unknown",
			want:    "0.1.0",
		},
		{
			name:    "empty commit",
			version: "0.1.0",
			commit:  "",
			want:    "0.1.0",
		},
		{
			name:    "release build with commit",
			version: "0.2.0",
			commit:  "abc1234",
			want:    "0.2.0 (commit abc1234)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, GitCommit = tt.version, tt.commit
			if got := VersionInfo(); got != tt.want {
				t.Errorf("VersionInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionInfoContainsVersion(t *testing.T) {
	if !strings.Contains(VersionInfo(), Version) {
		t.Errorf("VersionInfo() = %q, should contain version %q", VersionInfo(), Version)
	}
}
