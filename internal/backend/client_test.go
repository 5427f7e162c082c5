package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return &Client{
		httpClient: server.Client(),
		baseURL:    server.URL,
		endpoints:  DefaultEndpoints,
		now:        func() time.Time { return time.UnixMilli(1700000000000) },
	}
}

// capturedPart is one multipart part as seen by the test server.
type capturedPart struct {
	Name        string
	Filename    string
	ContentType string
	Value       string
}

func readParts(t *testing.T, r *http.Request) []capturedPart {
	t.Helper()
	mr, err := r.MultipartReader()
	if err != nil {
		t.Fatalf("multipart reader: %v", err)
	}
	var parts []capturedPart
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		data, _ := io.ReadAll(p)
		cp := capturedPart{Name: p.FormName(), Filename: p.FileName(), Value: string(data)}
		if p.FileName() != "" {
			cp.ContentType = p.Header.Get("Content-Type")
		}
		parts = append(parts, cp)
	}
	return parts
}

func TestSubmit_MultipartFields(t *testing.T) {
	var got []capturedPart
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/transform-pet" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		got = readParts(t, r)
		w.Write([]byte(`{"success":true,"message":"ok","composite_image":"https://cdn.example.com/out.png"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	res, err := client.Submit(context.Background(), Submission{
		Session: "smartdog_1_abc",
		Files:   []File{{Field: "frontal", Filename: "mel.jpg", ContentType: "image/jpeg", Data: []byte("jpegbytes")}},
		Breed:   "Labrador",
		Sex:     "female",
		Age:     "3 anos",
		Species: "Cachorro",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []capturedPart{
		{Name: "frontal", Filename: "mel.jpg", ContentType: "image/jpeg", Value: "jpegbytes"},
		{Name: FieldSession, Value: "smartdog_1_abc"},
		{Name: FieldBreed, Value: "Labrador"},
		{Name: FieldSex, Value: "fêmea"},
		{Name: FieldAge, Value: "3 anos"},
		{Name: FieldSpecies, Value: "cachorro"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parts mismatch (-want +got):\n%s", diff)
	}
	if res.TransformedImageURL != "https://cdn.example.com/out.png" {
		t.Errorf("unexpected image url: %s", res.TransformedImageURL)
	}
	if res.Session != "smartdog_1_abc" {
		t.Errorf("unexpected session: %s", res.Session)
	}
}

func TestSubmit_OptionalFieldsAndMultipleFiles(t *testing.T) {
	var got []capturedPart
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = readParts(t, r)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Submit(context.Background(), Submission{
		Files: []File{
			{Field: "frontal", Filename: "a.png", ContentType: "image/png", Data: []byte("a")},
			{Field: "focinho", Filename: "b.jpg", ContentType: "image/jpeg", Data: []byte("b")},
		},
		Breed:     "Persa",
		Sex:       "Macho",
		Age:       "1",
		Species:   "gato",
		Name:      "Tom",
		CoatColor: "Preto e Branco",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := make([]string, len(got))
	values := map[string]string{}
	for i, p := range got {
		names[i] = p.Name
		values[p.Name] = p.Value
	}
	wantNames := []string{"frontal", "focinho", FieldSession, FieldBreed, FieldSex, FieldAge, FieldSpecies, FieldName, FieldCoat}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Errorf("field order mismatch (-want +got):\n%s", diff)
	}
	if values[FieldCoat] != "pb" {
		t.Errorf("expected coat code pb, got %q", values[FieldCoat])
	}
	if values[FieldSex] != "macho" {
		t.Errorf("expected sex macho, got %q", values[FieldSex])
	}
	if values[FieldSpecies] != "gato" {
		t.Errorf("expected especie gato, got %q", values[FieldSpecies])
	}
	if !strings.HasPrefix(values[FieldSession], "smartdog_1700000000000_") {
		t.Errorf("expected generated session, got %q", values[FieldSession])
	}
}

func TestSubmit_ResolvesRelativeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		w.Write([]byte(`{"success":true,"transformed_image":"/static/out.png","prompt_used":"p","idade_humana":28}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	res, err := client.Submit(context.Background(), Submission{Breed: "x", Sex: "male", Age: "4", Species: "dog"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TransformedImageURL != server.URL+"/static/out.png" {
		t.Errorf("unexpected image url: %s", res.TransformedImageURL)
	}
	if res.HumanAge == nil || *res.HumanAge != 28 {
		t.Errorf("unexpected human age: %v", res.HumanAge)
	}
	if res.Prompt != "p" {
		t.Errorf("unexpected prompt: %s", res.Prompt)
	}
}

func TestSubmit_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{"rejected with error", 200, `{"success":false,"error":"Imagem inválida"}`, ErrRejected, "Imagem inválida"},
		{"rejected with message only", 200, `{"success":false,"message":"Tente outra foto"}`, ErrRejected, "Tente outra foto"},
		{"rejected without text", 200, `{"success":false}`, ErrRejected, MsgGenericFailure},
		{"success flag absent", 200, `{"message":"hm"}`, ErrRejected, "hm"},
		{"invalid json", 200, `<html>oops</html>`, ErrDecode, MsgGenericFailure},
		{"server error", 500, `{"success":false,"error":"boom"}`, ErrTransport, MsgGenericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.ParseMultipartForm(1 << 20)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server)
			_, err := client.Submit(context.Background(), Submission{Breed: "b", Sex: "male", Age: "1", Species: "dog"})
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			if got := UserMessage(err); got != tt.message {
				t.Errorf("user message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestSubmit_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	_, err := client.Submit(context.Background(), Submission{Breed: "b", Sex: "male", Age: "1", Species: "dog"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if UserMessage(err) != MsgConnectivity {
		t.Errorf("unexpected user message: %q", UserMessage(err))
	}
}

func TestCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/pet-human-count" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]int{"count": 3120})
	}))
	defer server.Close()

	n, err := newTestClient(server).Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3120 {
		t.Errorf("expected 3120, got %d", n)
	}
}

func TestCount_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusServiceUnavailable, `{}`},
		{"bad json", http.StatusOK, `count=1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			if _, err := newTestClient(server).Count(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIncrementCount(t *testing.T) {
	var body incrementRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/pet-human-count/increment" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"count":2848}`))
	}))
	defer server.Close()

	if err := newTestClient(server).IncrementCount(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Increment != 1 {
		t.Errorf("expected increment 1, got %d", body.Increment)
	}
}

func TestIncrementCount_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := newTestClient(server).IncrementCount(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestFetchImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("pngdata"))
	}))
	defer server.Close()

	data, ct, err := newTestClient(server).FetchImage(context.Background(), server.URL+"/out.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "pngdata" || ct != "image/png" {
		t.Errorf("unexpected image: %q %q", data, ct)
	}
}

func TestFetchImage_DataURL(t *testing.T) {
	client := NewClient("http://unused.invalid", 0)
	data, ct, err := client.FetchImage(context.Background(), "data:image/png;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello" || ct != "image/png" {
		t.Errorf("unexpected image: %q %q", data, ct)
	}
}

func TestRemap(t *testing.T) {
	tests := []struct {
		field, in, want string
	}{
		{FieldSex, "female", "fêmea"},
		{FieldSex, "Fêmea", "fêmea"},
		{FieldSex, "male", "macho"},
		{FieldSpecies, "dog", "cachorro"},
		{FieldSpecies, "Gato", "gato"},
		{FieldCoat, "Marrom / Chocolate", "marrom"},
		{FieldCoat, "Cinza / Azul", "cinza"},
		{FieldCoat, "Lilás", "Lilás"},
		{FieldBreed, "Labrador", "Labrador"},
		{FieldSex, "", ""},
	}
	for _, tt := range tests {
		if got := Remap(tt.field, tt.in); got != tt.want {
			t.Errorf("Remap(%q, %q) = %q, want %q", tt.field, tt.in, got, tt.want)
		}
	}
}

func TestNewSessionID(t *testing.T) {
	now := time.UnixMilli(1712345678901)
	a := NewSessionID(now)
	b := NewSessionID(now)
	if !strings.HasPrefix(a, "smartdog_1712345678901_") {
		t.Errorf("unexpected session id: %s", a)
	}
	if len(a) != len("smartdog_1712345678901_")+8 {
		t.Errorf("unexpected suffix length: %s", a)
	}
	if a == b {
		t.Errorf("expected distinct suffixes, got %s twice", a)
	}
}

func TestWriteFilePart_DefaultsContentType(t *testing.T) {
	var sb strings.Builder
	w := multipart.NewWriter(&sb)
	if err := writeFilePart(w, File{Field: "angulo", Filename: `we"ird.bin`, Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	w.Close()
	out := sb.String()
	if !strings.Contains(out, "Content-Type: application/octet-stream") {
		t.Errorf("expected octet-stream default, got:\n%s", out)
	}
	if !strings.Contains(out, `filename="we\"ird.bin"`) {
		t.Errorf("expected escaped filename, got:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"curto", 10, "curto"},
		{"abcdef", 3, "abc..."},
		// "ã" is two bytes; cutting inside it backs off to the rune start.
		{"não encontrado", 2, "n..."},
		{"não encontrado", 3, "nã..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
		}
	}
}
