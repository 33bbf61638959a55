package materials

import "testing"

func TestMaskIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       string
	}{
		{name: "long", identifier: "ab12cd", want: "ab****cd"},
		{name: "five runes", identifier: "abcde", want: "ab****de"},
		{name: "four runes", identifier: "abcd", want: "abcd****"},
		{name: "short", identifier: "xy", want: "xy****"},
		{name: "empty", identifier: "", want: "****"},
		{name: "multibyte", identifier: "账户名称测试", want: "账户****测试"},
		{name: "multibyte short", identifier: "账户", want: "账户****"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskIdentifier(tt.identifier); got != tt.want {
				t.Errorf("MaskIdentifier(%q) = %q, want %q", tt.identifier, got, tt.want)
			}
			if again := MaskIdentifier(tt.identifier); again != MaskIdentifier(tt.identifier) {
				t.Errorf("MaskIdentifier(%q) is not deterministic", tt.identifier)
			}
		})
	}
}

func TestPresented(t *testing.T) {
	tests := []struct {
		name     string
		material Material
		want     string
	}{
		{name: "idle masked", material: Material{Identifier: "ab12cd", Status: StatusIdle}, want: "ab****cd"},
		{name: "in use never masked", material: Material{Identifier: "ab12cd", Status: StatusInUse, Holder: "u"}, want: "ab12cd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.material
			got := Presented(tt.material)
			if got.Identifier != tt.want {
				t.Errorf("Presented().Identifier = %q, want %q", got.Identifier, tt.want)
			}
			if tt.material != original {
				t.Errorf("Presented() mutated its input")
			}
		})
	}
}

func TestVisible(t *testing.T) {
	idle := Material{Status: StatusIdle}
	mine := Material{Status: StatusInUse, Holder: "alice"}
	theirs := Material{Status: StatusInUse, Holder: "bob"}

	tests := []struct {
		name     string
		material Material
		viewer   *Viewer
		want     bool
	}{
		{name: "idle for user", material: idle, viewer: &Viewer{Username: "alice"}, want: true},
		{name: "own claim", material: mine, viewer: &Viewer{Username: "alice"}, want: true},
		{name: "other claim", material: theirs, viewer: &Viewer{Username: "alice"}, want: false},
		{name: "admin", material: theirs, viewer: &Viewer{Username: "root", Admin: true}, want: true},
		{name: "no viewer", material: theirs, viewer: nil, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Visible(tt.material, tt.viewer); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   Status
		wantOK bool
	}{
		{"idle", StatusIdle, true},
		{"IDLE", StatusIdle, true},
		{"空闲", StatusIdle, true},
		{"in_use", StatusInUse, true},
		{"In-Use", StatusInUse, true},
		{"已使用", StatusInUse, true},
		{"broken", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseStatus(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseStatus(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
