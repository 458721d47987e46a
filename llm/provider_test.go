package llm

import (
	"fmt"
	"reflect"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"ollama", "*llm.ollamaProvider"},
		{"custom", "*llm.openAICompatProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := Config{Provider: tt.provider, Model: "test-model"}
			p, err := NewProvider(cfg)
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			if gotType := fmt.Sprintf("%T", p); gotType != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, gotType, tt.wantType)
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "openrouter", Model: "test-model"})
	if err == nil {
		t.Fatal("expected error for unsupported cloud provider, got nil")
	}
}

func TestNewProviderEmpty(t *testing.T) {
	_, err := NewProvider(Config{Provider: "", Model: "test-model"})
	if err == nil {
		t.Fatal("expected error for empty provider, got nil")
	}
	want := "llm provider not specified"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestOllamaDefaultBaseURL(t *testing.T) {
	p, err := NewProvider(Config{Provider: "ollama", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewProvider(ollama): %v", err)
	}

	v := reflect.ValueOf(p).Elem()
	gotURL := v.FieldByName("base").FieldByName("cfg").FieldByName("BaseURL").String()
	if gotURL != "http://localhost:11434" {
		t.Errorf("default BaseURL = %q, want %q", gotURL, "http://localhost:11434")
	}
}

func TestCustomProviderNoDefaultURL(t *testing.T) {
	p, err := NewProvider(Config{Provider: "custom", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewProvider(custom): %v", err)
	}

	v := reflect.ValueOf(p).Elem()
	gotURL := v.FieldByName("base").FieldByName("cfg").FieldByName("BaseURL").String()
	if gotURL != "" {
		t.Errorf("custom provider BaseURL = %q, want empty", gotURL)
	}
}

func TestExplicitBaseURLPreserved(t *testing.T) {
	customURL := "http://my-server:9999"
	for _, provider := range []string{"ollama", "custom"} {
		t.Run(provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: provider, Model: "test-model", BaseURL: customURL})
			if err != nil {
				t.Fatalf("NewProvider(%q): %v", provider, err)
			}
			v := reflect.ValueOf(p).Elem()
			gotURL := v.FieldByName("base").FieldByName("cfg").FieldByName("BaseURL").String()
			if gotURL != customURL {
				t.Errorf("provider %q BaseURL = %q, want %q", provider, gotURL, customURL)
			}
		})
	}
}

func TestProviderImplementsInterface(t *testing.T) {
	for _, name := range []string{"ollama", "custom"} {
		t.Run(name, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: name, Model: "m"})
			if err != nil {
				t.Fatalf("NewProvider(%q): %v", name, err)
			}
			var _ Provider = p
			if p == nil {
				t.Fatal("provider is nil")
			}
		})
	}
}
