package version_test

import (
	"testing"

	v "github.com/keithlinneman/reqtiming/internal/version"
)

func TestVCSDirtyTriState(t *testing.T) {
	t.Cleanup(func() { v.VCSDirty = nil })

	v.VCSDirty = nil
	if info := v.Get(); info.VCSDirty != nil {
		t.Fatalf("VCSDirty = %v, want nil", *info.VCSDirty)
	}

	for _, want := range []bool{true, false} {
		val := want
		v.VCSDirty = &val
		info := v.Get()
		if info.VCSDirty == nil || *info.VCSDirty != want {
			t.Fatalf("VCSDirty = %v, want %v", info.VCSDirty, want)
		}
	}
}

func TestGet_Defaults(t *testing.T) {
	info := v.Get()
	if info.Version != v.Version {
		t.Fatalf("Version = %q, want %q", info.Version, v.Version)
	}
	if info.GoVersion == "" {
		t.Fatal("GoVersion should come from build info")
	}
}
