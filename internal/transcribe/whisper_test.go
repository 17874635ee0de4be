package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(p, []byte("ID3fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestWhisperClient_Transcribe(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			got[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
		} else {
			b, _ := io.ReadAll(f)
			got["file"] = string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"안녕하세요","language":"ko","duration":3.5}`)
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "large-v3", 5*time.Second)
	resp, err := wc.Transcribe(context.Background(), writeAudio(t), Options{Language: "ko", Prompt: "렘넌트"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "안녕하세요" || resp.Language != "ko" || resp.Duration != 3.5 {
		t.Errorf("response = %+v", resp)
	}
	for k, want := range map[string]string{
		"model": "large-v3", "language": "ko", "prompt": "렘넌트",
		"response_format": "json", "file": "ID3fake",
	} {
		if got[k] != want {
			t.Errorf("form[%s] = %q, want %q", k, got[k], want)
		}
	}
}

func TestWhisperClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewWhisperClient(srv.URL, "", time.Second).Transcribe(context.Background(), writeAudio(t), Options{})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v, want status 503", err)
	}
}

func TestOpenAIProvider_Transcribe(t *testing.T) {
	var path, model, format string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			model = r.FormValue("model")
			format = r.FormValue("response_format")
		}
		io.WriteString(w, "  hello world \n")
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL+"/v1/", "")
	if p.Model() != "whisper-1" {
		t.Errorf("default model = %q", p.Model())
	}
	resp, err := p.Transcribe(context.Background(), writeAudio(t), Options{Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "hello world" {
		t.Errorf("Text = %q", resp.Text)
	}
	if path != "/v1/audio/transcriptions" || model != "whisper-1" || format != "text" {
		t.Errorf("request path=%q model=%q format=%q", path, model, format)
	}
}
