package main

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	writePNG(t, bg, 640, 360)
	out := filepath.Join(dir, "out", "frame.jpg")

	code, stdout, stderr := runCLI("render", "-text", "Hello world", "-background", bg, "-out", out, "-size", "48", "-opacity", "0.8")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "1920x360, 1 line(s)") {
		t.Errorf("stdout = %q", stdout)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := jpeg.Decode(f); err != nil {
		t.Errorf("output is not a JPEG: %v", err)
	}
}

func TestRenderFailures(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	writePNG(t, bg, 100, 100)
	out := filepath.Join(dir, "frame.png")

	code, _, stderr := runCLI("render", "-text", "x", "-font", filepath.Join(dir, "missing.ttf"), "-background", bg, "-out", out)
	if code != exitFailed || !strings.Contains(stderr, "resource not found") {
		t.Errorf("missing font: exit %d, stderr %q", code, stderr)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output written despite failure: %v", err)
	}

	if code, _, _ := runCLI("render", "-text", "x"); code != exitUsage {
		t.Errorf("missing flags: exit %d", code)
	}
	if code, _, _ := runCLI("render", "-background", bg, "-out", out, "-log-level", "loud"); code != exitUsage {
		t.Errorf("bad log level: exit %d", code)
	}
}

func TestCues(t *testing.T) {
	dir := t.TempDir()
	sheet := filepath.Join(dir, "song.lrc")
	if err := os.WriteFile(sheet, []byte("[Chorus]\n[00:01.00]one\n[00:03.50]two\n"), 0644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI("cues", "-lyrics", sheet, "-duration", "2")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"one", "two", "chorus", "2 cue(s)"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestUsage(t *testing.T) {
	if code, _, _ := runCLI(); code != exitUsage {
		t.Errorf("no args: exit %d", code)
	}
	if code, _, stderr := runCLI("explode"); code != exitUsage || !strings.Contains(stderr, "unknown command") {
		t.Errorf("unknown command: exit %d", code)
	}
	if code, stdout, _ := runCLI("help"); code != exitOK || !strings.Contains(stdout, "assemble") {
		t.Errorf("help: exit %d", code)
	}
	if code, _, _ := runCLI("assemble"); code != exitUsage {
		t.Errorf("assemble without -job: exit %d", code)
	}
}

func TestAssembleRejectsInvalidJob(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "video.json")
	if err := os.WriteFile(jobPath, []byte(`{"name":"x","format":"mp4","framerate":30,"resolution":[64,64],"frames":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if code, _, stderr := runCLI("assemble", "-job", jobPath); code != exitFailed || !strings.Contains(stderr, "at least one frame") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}
