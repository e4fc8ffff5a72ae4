package security

import (
	"testing"
	"time"
)

func TestURLGuard_ValidateURL(t *testing.T) {
	guard := NewURLGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"正常なHTTPS URL", "https://github.com/owner/repo", false},
		{"正常なHTTP URL", "http://example.com/feed.xml", false},
		{"空URL", "", true},
		{"不正なスキーム", "ftp://example.com", true},
		{"fileスキーム", "file:///etc/passwd", true},
		{"ホストなし", "https://", true},
		{"localhost", "http://localhost/feed", true},
		{"ループバックIP", "http://127.0.0.1/feed", true},
		{"プライベートIP", "http://192.168.1.1/feed", true},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data", true},
		{"パブリックIP", "http://93.184.216.34/feed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestURLGuard_ValidateRepositoryURL(t *testing.T) {
	guard := NewURLGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"正常なリポジトリURL", "https://github.com/golang/go", false},
		{"wwwつきホスト", "https://www.github.com/golang/go", false},
		{"サブパスつき", "https://github.com/golang/go/tree/master", false},
		{"GitHub以外のホスト", "https://gitlab.com/owner/repo", true},
		{"類似ドメイン", "https://github.com.evil.example/owner/repo", true},
		{"ownerのみ", "https://github.com/golang", true},
		{"パスなし", "https://github.com", true},
		{"空URL", "", true},
		{"URLでない文字列", "github.com/golang/go", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateRepositoryURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRepositoryURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestURLGuard_NewSafeClient(t *testing.T) {
	guard := NewURLGuard()

	client := guard.NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient がnilを返した")
	}
}
