package firmware

import "testing"

func TestCleanChangelog(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "whitespace only", raw: "  \n ", want: ""},
		{name: "plain text", raw: "Bug fixes", want: "Bug fixes"},
		{
			name: "paragraphs",
			raw:  "<p>System</p><p>Improved   stability</p>",
			want: "System\nImproved stability",
		},
		{
			name: "inline bullets split",
			raw:  "<p>Camera • Improved HDR • Fixed focus</p>",
			want: "Camera\n• Improved HDR\n• Fixed focus",
		},
		{
			name: "non-breaking spaces",
			raw:  "<div>Security&nbsp;&nbsp;patch</div>",
			want: "Security patch",
		},
		{
			name: "scripts dropped",
			raw:  "<p>Notes</p><script>alert(1)</script>",
			want: "Notes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanChangelog(tt.raw); got != tt.want {
				t.Errorf("CleanChangelog() = %q, want %q", got, tt.want)
			}
		})
	}
}
