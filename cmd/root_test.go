package cmd

import (
	"log/slog"
	"testing"
)

func TestRootSubcommands(t *testing.T) {
	want := map[string]bool{"run": false, "ingest": false, "version": false}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{name: "default is info", level: "", wantDebug: false, wantInfo: true},
		{name: "debug", level: "debug", wantDebug: true, wantInfo: true},
		{name: "warn", level: "warn", wantDebug: false, wantInfo: false},
		{name: "error", level: "error", wantDebug: false, wantInfo: false},
		{name: "unknown falls back to info", level: "verbose", wantDebug: false, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HELPMATE_LOG_LEVEL", tt.level)
			logger := initLogger()
			if got := logger.Enabled(t.Context(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Enabled(debug) = %v, want %v", got, tt.wantDebug)
			}
			if got := logger.Enabled(t.Context(), slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Enabled(info) = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}
