package dev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestBuilder_Success(t *testing.T) {
	builder := NewBuilder(BuilderConfig{
		Command: "true",
		Dir:     t.TempDir(),
	})

	result := builder.Run(context.Background())
	if !result.Success {
		t.Fatalf("Success = false: %v %v", result.Error, result.Output)
	}
	if len(result.Output) != 0 {
		t.Errorf("Output = %v, want none", result.Output)
	}
}

func TestBuilder_WarningsAreOutputOnSuccess(t *testing.T) {
	builder := NewBuilder(BuilderConfig{
		Command: "echo deprecated API; echo unused import",
		Dir:     t.TempDir(),
	})

	result := builder.Run(context.Background())
	if !result.Success {
		t.Fatalf("Success = false")
	}
	if len(result.Output) != 2 {
		t.Fatalf("Output = %v, want 2 lines", result.Output)
	}
	if result.Output[0] != "deprecated API" {
		t.Errorf("Output[0] = %q", result.Output[0])
	}
}

func TestBuilder_Failure(t *testing.T) {
	builder := NewBuilder(BuilderConfig{
		Command: "echo syntax error >&2; exit 1",
		Dir:     t.TempDir(),
	})

	result := builder.Run(context.Background())
	if result.Success {
		t.Fatal("Success = true for failing command")
	}
	if len(result.Output) != 1 || result.Output[0] != "syntax error" {
		t.Errorf("Output = %v", result.Output)
	}
	if result.Assets != nil {
		t.Error("failed builds should carry no assets")
	}
}

func TestBuilder_AssetScan(t *testing.T) {
	assetDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(assetDir, "js"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"index.html", "js/main.js"} {
		if err := os.WriteFile(filepath.Join(assetDir, filepath.FromSlash(f)), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	builder := NewBuilder(BuilderConfig{
		Command:  "true",
		Dir:      assetDir,
		AssetDir: assetDir,
	})

	result := builder.Run(context.Background())
	if !result.Success {
		t.Fatal("build failed")
	}
	if len(result.Assets) != 2 {
		t.Fatalf("Assets = %v", result.Assets)
	}
	if _, ok := result.Assets["js/main.js"]; !ok {
		t.Errorf("Assets missing js/main.js: %v", result.Assets)
	}
}
