package security

import "testing"

func TestTextSanitizer_StripsHTML(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "สวัสดีครับ ลองดู repo นี้เลย", "สวัสดีครับ ลองดู repo นี้เลย"},
		{"scriptタグ除去", `před<script>alert("xss")</script>po`, "předpo"},
		{"タグのみ除去しテキストは維持", "<b>สุดยอด</b> tool ตัวนี้", "สุดยอด tool ตัวนี้"},
		{"リンクタグ除去", `ดูได้ที่ <a href="https://evil.example">github</a>`, "ดูได้ที่ github"},
		{"エンティティ展開", "A &amp; B", "A & B"},
		{"空文字列", "", ""},
		{"前後の空白をトリム", "  ข้อความ  ", "ข้อความ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	s := NewTextSanitizer()

	input := `<p>ลอง <strong>ดู</strong> repo นี้</p>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("冪等性がない: %q != %q", once, twice)
	}
}

func TestTextSanitizer_ImplementsInterface(t *testing.T) {
	var _ TextSanitizerService = NewTextSanitizer()
}
