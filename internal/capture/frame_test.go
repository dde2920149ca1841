package capture

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func TestFrame_SetAndFill(t *testing.T) {
	f := NewFrame(4, 3)
	if len(f.Pix) != 4*3*3 {
		t.Fatalf("len(Pix) = %d, want 36", len(f.Pix))
	}

	f.SetRGB(3, 2, 1, 2, 3)
	if r, g, b := f.RGB(3, 2); r != 1 || g != 2 || b != 3 {
		t.Errorf("RGB(3,2) = (%d,%d,%d), want (1,2,3)", r, g, b)
	}

	// Out-of-frame parts of the rectangle are clipped.
	f.FillRect(image.Rect(2, 1, 10, 10), 9, 9, 9)
	if r, _, _ := f.RGB(1, 1); r != 0 {
		t.Errorf("RGB(1,1).r = %d, want 0", r)
	}
	if r, _, _ := f.RGB(3, 2); r != 9 {
		t.Errorf("RGB(3,2).r = %d, want 9", r)
	}

	c := f.Clone()
	c.Fill(200, 0, 0)
	if r, _, _ := f.RGB(0, 0); r != 0 {
		t.Error("Clone shares pixel storage with the original")
	}
}

func TestFrameFromMat_ConvertsBGR(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV8UC3)
	defer mat.Close()
	// Scalar order is B, G, R.
	mat.SetTo(gocv.NewScalar(10, 20, 30, 0))

	f, err := FrameFromMat(&mat)
	if err != nil {
		t.Fatalf("FrameFromMat() error = %v", err)
	}
	if f.Width != 3 || f.Height != 2 {
		t.Fatalf("size = %dx%d, want 3x2", f.Width, f.Height)
	}
	if r, g, b := f.RGB(2, 1); r != 30 || g != 20 || b != 10 {
		t.Errorf("RGB(2,1) = (%d,%d,%d), want (30,20,10)", r, g, b)
	}

	back, err := f.ToMat()
	if err != nil {
		t.Fatalf("ToMat() error = %v", err)
	}
	defer back.Close()
	if v := back.GetVecbAt(0, 0); v[0] != 10 || v[2] != 30 {
		t.Errorf("ToMat() pixel = %v, want BGR (10,20,30)", v)
	}
}

func TestFrameFromMat_RejectsGray(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	gray := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8U)
	defer gray.Close()

	if _, err := FrameFromMat(&gray); !errors.Is(err, ErrUnsupportedMat) {
		t.Errorf("FrameFromMat(gray) error = %v, want ErrUnsupportedMat", err)
	}
	if _, err := FrameFromMat(nil); err == nil {
		t.Error("FrameFromMat(nil) should fail")
	}
}
