package services

import (
	"testing"
	"time"
)

func TestSpacesService_ArchiveKey(t *testing.T) {
	at := time.Date(2024, 5, 1, 23, 0, 0, 0, time.FixedZone("CST", 8*3600))

	tests := []struct {
		name     string
		root     string
		filename string
		want     string
	}{
		{name: "root", root: "pool", filename: "batch.xlsx", want: "pool/imports/2024/05/01/b1_batch.xlsx"},
		{name: "no root", root: "", filename: "batch.csv", want: "imports/2024/05/01/b1_batch.csv"},
		{name: "windows path", root: "pool", filename: `C:\Users\me\导入.xlsx`, want: "pool/imports/2024/05/01/b1_导入.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SpacesService{root: tt.root}
			if got := s.ArchiveKey("b1", tt.filename, at); got != tt.want {
				t.Errorf("ArchiveKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("a.XLSX"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("contentType(xlsx) = %q", got)
	}
	if got := contentType("a.csv"); got != "text/csv" {
		t.Errorf("contentType(csv) = %q", got)
	}
	if got := contentType("a.bin"); got != "application/octet-stream" {
		t.Errorf("contentType(bin) = %q", got)
	}
}
