package cmd

import (
	"testing"
)

func TestRootCmd(t *testing.T) {
	if rootCmd.Use != "putusan" {
		t.Errorf("Use = %q, want %q", rootCmd.Use, "putusan")
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty Short description")
	}
	if rootCmd.Long == "" {
		t.Error("expected non-empty Long description")
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"serve", "index", "chat", "backup", "restore", "version"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRestoreCmd_RequiresArchiveArg(t *testing.T) {
	if restoreCmd.Args == nil {
		t.Fatal("restore command should validate arguments")
	}
	if err := restoreCmd.Args(restoreCmd, nil); err == nil {
		t.Error("expected error for missing archive argument")
	}
	if err := restoreCmd.Args(restoreCmd, []string{"backup.tar.gz"}); err != nil {
		t.Errorf("unexpected error with one argument: %v", err)
	}
}
