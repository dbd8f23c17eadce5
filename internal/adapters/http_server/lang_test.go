package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSelectLang(t *testing.T) {
	cases := map[string]string{
		"":               "en",
		"hi-IN,hi;q=0.9": "hi",
		"te":             "te",
		"fr-FR,mr;q=0.8": "mr",
		"de":             "en",
		"en-GB,en;q=0.9": "en",
	}
	for in, want := range cases {
		if got := selectLang(in); got != want {
			t.Errorf("selectLang(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateBody(t *testing.T) {
	if err := validateBody("chatbot", []byte(`{"prompt":"hi","targetLanguage":"mr"}`)); err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
	if err := validateBody("chatbot", []byte(`{"prompt":""}`)); err == nil {
		t.Fatalf("empty prompt accepted")
	}
	if err := validateBody("translate-text", []byte(`{"text":"x","targetLanguage":"fr"}`)); err == nil {
		t.Fatalf("unsupported language accepted")
	}
	if err := validateBody("transcribe", []byte(`not json`)); err == nil {
		t.Fatalf("invalid JSON accepted")
	}
}

func TestSupportedTargetRejectsUnknownLanguage(t *testing.T) {
	rr := httptest.NewRecorder()
	if supportedTarget(rr, "fr") {
		t.Fatal("fr should be rejected")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type=%s", ct)
	}

	for _, l := range []string{"en", "hi-IN", "te", "mr"} {
		if !supportedTarget(httptest.NewRecorder(), l) {
			t.Fatalf("%s should be accepted", l)
		}
	}
}
