package display

import "testing"

func TestParseRes(t *testing.T) {
	cases := []struct {
		in      string
		want    Res
		wantErr bool
	}{
		{in: "3840x2160", want: Res{W: 3840, H: 2160}},
		{in: "0x0", want: Res{}},
		{in: " 1280X720 ", want: Res{W: 1280, H: 720}},
		{in: "1280", wantErr: true},
		{in: "ax1", wantErr: true},
		{in: "-1x5", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseRes(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseRes(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRes(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRes(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFitInside(t *testing.T) {
	cases := []struct {
		name   string
		res    Res
		target TargetRes
		want   Res
	}{
		{
			name:   "container scales to limiting axis",
			res:    Res{W: 4000, H: 2000},
			target: TargetRes{Res: Res{W: 2000, H: 2000}, Fit: FitContainer},
			want:   Res{W: 2000, H: 1000},
		},
		{
			name:   "container portrait",
			res:    Res{W: 1000, H: 4000},
			target: TargetRes{Res: Res{W: 2000, H: 2000}, Fit: FitContainer},
			want:   Res{W: 500, H: 2000},
		},
		{
			name:   "never upscales",
			res:    Res{W: 800, H: 600},
			target: TargetRes{Res: Res{W: 1920, H: 1080}, Fit: FitContainer},
			want:   Res{W: 800, H: 600},
		},
		{
			name:   "zero target is unset",
			res:    Res{W: 4000, H: 2000},
			target: TargetRes{Res: Res{}, Fit: FitContainer},
			want:   Res{W: 4000, H: 2000},
		},
		{
			name:   "height fit ignores width overflow",
			res:    Res{W: 4000, H: 2000},
			target: TargetRes{Res: Res{W: 100, H: 1000}, Fit: FitHeight},
			want:   Res{W: 2000, H: 1000},
		},
		{
			name:   "width fit ignores height overflow",
			res:    Res{W: 4000, H: 2000},
			target: TargetRes{Res: Res{W: 1000, H: 100}, Fit: FitWidth},
			want:   Res{W: 1000, H: 500},
		},
		{
			name:   "fullsize passes through",
			res:    Res{W: 4000, H: 2000},
			target: TargetRes{Res: Res{W: 100, H: 100}, Fit: FitFullSize},
			want:   Res{W: 4000, H: 2000},
		},
		{
			name:   "zero height target with height fit leaves unchanged",
			res:    Res{W: 4000, H: 2000},
			target: TargetRes{Res: Res{W: 1000, H: 0}, Fit: FitHeight},
			want:   Res{W: 4000, H: 2000},
		},
		{
			name:   "minimum floor raises the scale",
			res:    Res{W: 4000, H: 2000},
			target: TargetRes{Res: Res{W: 1000, H: 1000}, Fit: FitContainer, Min: Res{W: 0, H: 1500}},
			want:   Res{W: 3000, H: 1500},
		},
		{
			name:   "minimum floor never upscales",
			res:    Res{W: 1200, H: 900},
			target: TargetRes{Res: Res{W: 1000, H: 1000}, Fit: FitContainer, Min: Res{W: 0, H: 2000}},
			want:   Res{W: 1200, H: 900},
		},
		{
			name:   "zero source unchanged",
			res:    Res{},
			target: TargetRes{Res: Res{W: 1000, H: 1000}, Fit: FitContainer},
			want:   Res{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.res.FitInside(tc.target); got != tc.want {
				t.Errorf("FitInside(%v, %+v) = %v, want %v", tc.res, tc.target, got, tc.want)
			}
		})
	}
}

func TestTargetResForMode(t *testing.T) {
	base := TargetRes{Res: Res{W: 3840, H: 2160}, Fit: FitContainer}

	if got := base.ForMode(DualPage); got.Res != (Res{W: 1920, H: 2160}) {
		t.Errorf("dual page target = %v, want 1920x2160", got.Res)
	}
	if got := base.ForMode(DualPageReversed); got.Res != (Res{W: 1920, H: 2160}) {
		t.Errorf("dual page reversed target = %v, want 1920x2160", got.Res)
	}
	if got := base.ForMode(Single); got != base {
		t.Errorf("single target = %+v, want unchanged", got)
	}
}

func TestToggleApply(t *testing.T) {
	cases := []struct {
		toggle      Toggle
		current     bool
		want        bool
		wantChanged bool
	}{
		{Change, false, true, true},
		{Change, true, false, true},
		{On, false, true, true},
		{On, true, true, false},
		{Off, true, false, true},
		{Off, false, false, false},
	}

	for _, tc := range cases {
		got, changed := tc.toggle.Apply(tc.current)
		if got != tc.want || changed != tc.wantChanged {
			t.Errorf("Toggle(%d).Apply(%v) = %v, %v; want %v, %v",
				tc.toggle, tc.current, got, changed, tc.want, tc.wantChanged)
		}
	}
}
