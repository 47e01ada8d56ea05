package worker

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AndrewDonelson/lyric-frame-studio/pkg/fonts"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/frame"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
)

func TestRenderBatchIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	writeBackground(t, bg, 200, 100)

	c := frame.NewCompositor(frame.Options{FontSize: 20, LineSpacing: 4, CanvasWidth: 200, WrapRatio: 0.9}, fonts.NewLibrary())
	sink := storage.NewFileSink(filepath.Join(dir, "out"))

	tasks := []FrameTask{
		{Index: 0, Key: "0.png", Request: frame.Request{Text: "a", FontPath: testFont, BackgroundPath: bg, Opacity: 1}},
		{Index: 1, Key: "1.png", Request: frame.Request{Text: "b", FontPath: filepath.Join(dir, "nope.ttf"), BackgroundPath: bg, Opacity: 1}},
		{Index: 2, Key: "2.png", Request: frame.Request{Text: "c d", FontPath: testFont, BackgroundPath: bg, Opacity: 0.5}},
	}

	var calls []int
	results := RenderBatch(context.Background(), c, sink, tasks, 3, func(done int, r FrameResult) {
		calls = append(calls, done)
	})

	if len(calls) != 3 || calls[2] != 3 {
		t.Errorf("progress calls = %v", calls)
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("healthy frames failed: %v / %v", results[0].Err, results[2].Err)
	}
	if !frame.IsResourceNotFound(results[1].Err) {
		t.Errorf("frame 1 error = %v", results[1].Err)
	}
	if first, ok := FirstError(results); !ok || first.Index != 1 {
		t.Errorf("FirstError = %+v, %v", first, ok)
	}
	if FailedCount(results) != 1 {
		t.Errorf("FailedCount = %d", FailedCount(results))
	}
	if results[2].Lines != 1 {
		t.Errorf("frame 2 lines = %d", results[2].Lines)
	}
}

func TestRenderBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := frame.NewCompositor(frame.DefaultOptions(), nil)
	results := RenderBatch(ctx, c, storage.NewFileSink(t.TempDir()), []FrameTask{{Index: 0, Key: "x.png"}}, 0, nil)
	if results[0].Err != context.Canceled {
		t.Errorf("err = %v", results[0].Err)
	}
}

// panickingSink stores every key except one, on which it panics
type panickingSink struct {
	storage.Sink
	key string
}

func (p panickingSink) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == p.key {
		panic("write on closed device")
	}
	return p.Sink.Put(ctx, key, data, contentType)
}

func TestRenderBatchRecoversPanics(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	writeBackground(t, bg, 64, 32)

	c := frame.NewCompositor(frame.Options{FontSize: 12, LineSpacing: 2, CanvasWidth: 64, WrapRatio: 0.9}, fonts.NewLibrary())
	sink := panickingSink{Sink: storage.NewFileSink(filepath.Join(dir, "out")), key: "1.png"}

	var tasks []FrameTask
	for i, key := range []string{"0.png", "1.png", "2.png"} {
		tasks = append(tasks, FrameTask{Index: i, Key: key, Request: frame.Request{Text: "la", FontPath: testFont, BackgroundPath: bg, Opacity: 1}})
	}

	results := RenderBatch(context.Background(), c, sink, tasks, 2, nil)

	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("healthy frames failed: %v / %v", results[0].Err, results[2].Err)
	}
	if err := results[1].Err; err == nil || !strings.Contains(err.Error(), "frame 1 panicked: write on closed device") {
		t.Errorf("frame 1 error = %v", err)
	}
	if FailedCount(results) != 1 {
		t.Errorf("FailedCount = %d", FailedCount(results))
	}
}
