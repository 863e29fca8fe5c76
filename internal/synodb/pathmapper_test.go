package synodb

import "testing"

func TestPathMapperPrefixSwap(t *testing.T) {
	m := NewPathMapper("/volume1/photo", "smb://nas.local/photo")

	got, err := m.ToSourcePath("/volume1/photo/family/2023/img.jpg")
	if err != nil {
		t.Fatalf("ToSourcePath: %v", err)
	}
	if got != "smb://nas.local/photo/family/2023/img.jpg" {
		t.Fatalf("got %q", got)
	}
}

func TestPathMapperTrailingSlashesNormalized(t *testing.T) {
	m := NewPathMapper("/volume1/photo/", "/mnt/photo/")

	got, err := m.ToSourcePath("/volume1/photo/a.jpg")
	if err != nil {
		t.Fatalf("ToSourcePath: %v", err)
	}
	if got != "/mnt/photo/a.jpg" {
		t.Fatalf("got %q", got)
	}
}

func TestPathMapperRejectsForeignPrefix(t *testing.T) {
	m := NewPathMapper("/volume1/photo", "/mnt/photo")

	if _, err := m.ToSourcePath("/volume2/video/clip.mov"); err == nil {
		t.Fatal("expected error for path outside prefix")
	}
	if _, err := m.ToSourcePath("/volume1/photo"); err == nil {
		t.Fatal("expected error for bare prefix")
	}
}

func TestPathMapperEmptyPrefixJoins(t *testing.T) {
	m := NewPathMapper("", "/mnt/photo")

	got, err := m.ToSourcePath("/family/img.jpg")
	if err != nil {
		t.Fatalf("ToSourcePath: %v", err)
	}
	if got != "/mnt/photo/family/img.jpg" {
		t.Fatalf("got %q", got)
	}
}
