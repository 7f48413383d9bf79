package feed

import (
	"strings"
	"testing"
)

func TestContentExtractor_Run(t *testing.T) {
	result, err := NewContentExtractor().Run([]byte(articleHTML), "https://blog.example/long-read")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "main content of the article") {
		t.Errorf("Expected extracted content to contain main article text")
	}
	if strings.Contains(result, "<p>") {
		t.Errorf("Expected plain text, got HTML")
	}
}

func TestContentExtractor_EmptyData(t *testing.T) {
	_, err := NewContentExtractor().Run(nil, "https://blog.example")
	if err == nil {
		t.Error("Expected error for empty HTML data")
	}
}
