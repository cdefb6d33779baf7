package pubsub

import "testing"

func TestTopicResourceName(t *testing.T) {
	tests := []struct {
		project string
		name    string
		want    string
	}{
		{project: "demo", name: "orders", want: "projects/demo/topics/orders"},
		{project: "demo", name: " projects/other/topics/orders ", want: "projects/other/topics/orders"},
		{project: "", name: "orders", want: ""},
		{project: "demo", name: "  ", want: ""},
	}
	for _, tt := range tests {
		if got := TopicResourceName(tt.project, tt.name); got != tt.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tt.project, tt.name, got, tt.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(nil); err == nil {
		t.Fatal("expected ping error on nil client")
	}
}
