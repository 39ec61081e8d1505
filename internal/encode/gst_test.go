//go:build gst

package encode

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGStreamerLaunchLeavesPathOut(t *testing.T) {
	launch := gstLaunch(NewFormat(64, 48, 30))
	if !strings.Contains(launch, "width=64,height=48,framerate=30/1") {
		t.Errorf("caps missing from %q", launch)
	}
	if !strings.HasSuffix(launch, "filesink name=out") || strings.Contains(launch, "location") {
		t.Errorf("output should be set as a property: %q", launch)
	}
}

func TestGStreamerOutputWithSpaces(t *testing.T) {
	out := filepath.Join(t.TempDir(), "my clip! v2.mp4")
	sink, err := OpenGStreamer(NewFormat(64, 48, 30), out, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	frame := make([]byte, sink.Format().FrameSize())
	for i := 0; i < 3; i++ {
		if _, err := sink.Write(frame); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
}
