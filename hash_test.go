package modtl

import (
	"strings"
	"testing"

	"github.com/ZaguanLabs/modtl/protect"
)

func TestHashText(t *testing.T) {
	want := "a591a6d40bf420404a011733cfb7b190d62c65bf0bcda32b57b277d9ad9f146e"

	for _, in := range []string{"Hello World", "  Hello World", "Hello World  ", "\tHello World\n"} {
		if got := HashText(in); got != want {
			t.Errorf("HashText(%q) = %s, want %s", in, got, want)
		}
	}
	if len(HashText("")) != 64 {
		t.Error("Empty text should still hash")
	}
	if HashText("a") == HashText("b") {
		t.Error("Different texts should have different hashes")
	}
}

func TestCacheKey(t *testing.T) {
	p := protect.NewProtector(nil)
	a := p.Protect("Deal {0} damage").Masked()
	b := p.Protect("Deal {1} damage").Masked()

	if CacheKey(a, "en", "ko_KR") != CacheKey(b, "en", "ko_KR") {
		t.Error("Strings differing only in placeholder values should share a key")
	}

	key := CacheKey(a, "en_US", "ko_KR")
	if !strings.HasSuffix(key, ":en:ko_KR") {
		t.Errorf("Unexpected key %q", key)
	}
	if key != CacheKey(a, "en", "ko_KR") {
		t.Error("Source region should not split the cache")
	}
	if key == CacheKey(a, "en", "ja_JP") {
		t.Error("Target language must be part of the key")
	}
	if CacheKeyExtended(a, "en", "ko_KR", "gpt-4o") != key+":gpt-4o" {
		t.Error("Extended key should append the model")
	}
}
