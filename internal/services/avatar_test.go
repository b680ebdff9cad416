package services

import "testing"

func TestAvatarObjectKey(t *testing.T) {
	s := &AvatarService{}

	tests := []struct {
		url  string
		want string
	}{
		{"", ""},
		{"https://cdn.example.com/avatars/abc.png", "avatars/abc.png"},
		{"http://localhost:9000/bucket/avatars/abc.jpg", "avatars/abc.jpg"},
		{"https://example.com/uploads/pic.png", ""},
	}

	for _, tc := range tests {
		if got := s.objectKey(tc.url); got != tc.want {
			t.Errorf("objectKey(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
