package gifski

import (
	"reflect"
	"testing"

	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/config"
)

func testSettings() config.Settings {
	return config.Settings{
		Quality:       70,
		Width:         320,
		Height:        0,
		FPS:           20,
		LossyQuality:  80,
		MotionQuality: 80,
	}
}

func TestBuildArgsFrames(t *testing.T) {
	got := buildArgs("/out/anim.gif", testSettings(), true, []string{"/tmp/frame_0001.png", "/tmp/frame_0002.png"})

	want := []string{
		"-o", "/out/anim.gif",
		"--quality", "70",
		"--width", "320",
		"--fps", "20",
		"--lossy-quality", "80",
		"--motion-quality", "80",
		"/tmp/frame_0001.png", "/tmp/frame_0002.png",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args mismatch\n got %v\nwant %v", got, want)
	}
}

func TestBuildArgsOptimizeOmitsFPS(t *testing.T) {
	s := testSettings()
	s.Width = 0
	s.Height = 240

	got := buildArgs("/out/clip_optim_70q_20fps.gif", s, false, []string{"/in/clip.gif"})

	want := []string{
		"-o", "/out/clip_optim_70q_20fps.gif",
		"--quality", "70",
		"--height", "240",
		"--lossy-quality", "80",
		"--motion-quality", "80",
		"/in/clip.gif",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args mismatch\n got %v\nwant %v", got, want)
	}
}

func TestBuildArgsZeroDimensionsOmitted(t *testing.T) {
	s := testSettings()
	s.Width, s.Height = 0, 0

	got := buildArgs("out.gif", s, true, []string{"a.png"})
	for _, arg := range got {
		if arg == "--width" || arg == "--height" {
			t.Errorf("zero dimension should be omitted, got %v", got)
		}
	}
}
